package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFindsTerms(t *testing.T) {
	e := NewVocabularyExtractor(DefaultVocabulary())

	found := e.Extract("Cache Redis lookups behind a PostgreSQL materialized view")
	assert.Equal(t, []string{"PostgreSQL", "Redis"}, found)
}

func TestExtractCaseInsensitiveCanonicalCasing(t *testing.T) {
	e := NewVocabularyExtractor(DefaultVocabulary())

	found := e.Extract("deploy with KUBERNETES and terraform")
	assert.Equal(t, []string{"Kubernetes", "Terraform"}, found)
}

func TestExtractWordBoundaries(t *testing.T) {
	e := NewVocabularyExtractor([]string{"Go", "React"})

	// "Go" must not match inside "Google" or "Django"
	assert.Empty(t, e.Extract("search Google for Django tips"))
	assert.Equal(t, []string{"Go"}, e.Extract("rewrite the service in Go"))
	// punctuation counts as a boundary
	assert.Equal(t, []string{"Go", "React"}, e.Extract("Go, React."))
}

func TestExtractEmptyAndNoMatches(t *testing.T) {
	e := NewVocabularyExtractor(DefaultVocabulary())

	assert.Equal(t, []string{}, e.Extract(""))
	assert.Equal(t, []string{}, e.Extract("nothing relevant here"))
}

func TestExtractDedup(t *testing.T) {
	e := NewVocabularyExtractor([]string{"Redis", "redis", " Redis "})

	found := e.Extract("redis redis redis")
	assert.Equal(t, []string{"Redis"}, found)
}

func TestNewFromEnvVocabFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("# custom terms\nFoundry\nAnvilDB\n\n"), 0o644))
	t.Setenv("GRAPHRAG_VOCAB_FILE", path)

	e := NewFromEnv()
	assert.Equal(t, []string{"AnvilDB", "Foundry"}, e.Extract("migrate Foundry jobs onto AnvilDB"))
	// builtin vocabulary is replaced, not merged
	assert.Empty(t, e.Extract("plain Redis usage"))
}

func TestNewFromEnvMissingFileFallsBack(t *testing.T) {
	t.Setenv("GRAPHRAG_VOCAB_FILE", filepath.Join(t.TempDir(), "missing.txt"))

	e := NewFromEnv()
	assert.Equal(t, []string{"Redis"}, e.Extract("plain Redis usage"))
}
