package extract

import (
	"bufio"
	"log"
	"os"
	"sort"
	"strings"
)

// Extractor pulls technology/domain entities out of free text. It is a
// pure function of its input: deterministic, no side effects, swappable
// with a smarter NLP implementation without touching the rest of the store.
type Extractor interface {
	// Extract returns the vocabulary terms found in text, in canonical
	// casing, sorted and deduplicated. Matching is case-insensitive.
	Extract(text string) []string
}

// VocabularyExtractor matches a fixed technology vocabulary against text
// on word boundaries.
type VocabularyExtractor struct {
	terms []string
	lower []string
}

// NewVocabularyExtractor creates an extractor over the given terms.
// Term casing is preserved in results.
func NewVocabularyExtractor(terms []string) *VocabularyExtractor {
	seen := make(map[string]bool, len(terms))
	e := &VocabularyExtractor{}
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true
		e.terms = append(e.terms, term)
		e.lower = append(e.lower, key)
	}
	return e
}

// NewFromEnv builds an extractor from GRAPHRAG_VOCAB_FILE (one term per
// line, # comments) or falls back to the builtin vocabulary.
func NewFromEnv() *VocabularyExtractor {
	path := os.Getenv("GRAPHRAG_VOCAB_FILE")
	if path == "" {
		return NewVocabularyExtractor(DefaultVocabulary())
	}
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Warning: Failed to open vocabulary file %q, using builtin vocabulary: %v", path, err)
		return NewVocabularyExtractor(DefaultVocabulary())
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Warning: Failed to read vocabulary file %q, using builtin vocabulary: %v", path, err)
		return NewVocabularyExtractor(DefaultVocabulary())
	}
	if len(terms) == 0 {
		return NewVocabularyExtractor(DefaultVocabulary())
	}
	return NewVocabularyExtractor(terms)
}

// Extract returns the subset of vocabulary terms occurring in text.
func (e *VocabularyExtractor) Extract(text string) []string {
	if text == "" {
		return []string{}
	}
	haystack := strings.ToLower(text)
	var found []string
	for i, term := range e.lower {
		if containsWord(haystack, term) {
			found = append(found, e.terms[i])
		}
	}
	sort.Strings(found)
	if found == nil {
		return []string{}
	}
	return found
}

// containsWord reports whether needle occurs in haystack delimited by
// non-alphanumeric characters, so "Go" does not match inside "Google".
func containsWord(haystack, needle string) bool {
	for offset := 0; ; {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		offset = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// DefaultVocabulary is the builtin technology/domain term list.
func DefaultVocabulary() []string {
	return []string{
		"Angular", "Ansible", "AWS", "Azure", "Bash", "C++", "Cassandra",
		"CircleCI", "Django", "Docker", "DynamoDB", "Elasticsearch", "Express",
		"FastAPI", "Flask", "GCP", "Git", "GitHub", "GitLab", "Go", "Gradle",
		"GraphQL", "gRPC", "Helm", "Java", "JavaScript", "Jenkins", "Jest",
		"Kafka", "Kotlin", "Kubernetes", "Lambda", "Linux", "MongoDB", "MySQL",
		"Next.js", "Nginx", "Node.js", "NumPy", "OAuth", "OpenAPI", "pandas",
		"PostgreSQL", "Prometheus", "protobuf", "Python", "RabbitMQ", "Rails",
		"React", "Redis", "REST", "Ruby", "Rust", "S3", "Scala", "Spark",
		"Spring", "SQLite", "Svelte", "Swift", "Terraform", "TypeScript",
		"Vue", "WebSocket", "webpack",
	}
}
