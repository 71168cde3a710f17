package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"retry", "exponential", "backoff"}, Tokenize("Retry with exponential backoff"))
	assert.Empty(t, Tokenize("the a an of"))
	assert.Empty(t, Tokenize(""))
	assert.Equal(t, []string{"node", "js", "redis"}, Tokenize("Node.js + Redis!"))
}

func TestRelevanceEmptyQuery(t *testing.T) {
	assert.Equal(t, 0.0, Relevance("", "anything at all"))
	assert.Equal(t, 0.0, Relevance("the of a", "anything at all"))
}

func TestRelevanceExactSubstring(t *testing.T) {
	score := Relevance("retry backoff", "Use retry backoff when calling flaky services")
	// full overlap plus substring bonus
	assert.Equal(t, 1.0, score)
}

func TestRelevancePartialOverlap(t *testing.T) {
	score := Relevance("retry backoff", "Always retry failed requests")
	// one of two query tokens, no substring
	assert.InDelta(t, 0.35, score, 1e-9)

	assert.Greater(t,
		Relevance("retry backoff", "retry with backoff"),
		Relevance("retry backoff", "retry only"))
}

func TestRelevanceNoOverlap(t *testing.T) {
	assert.Equal(t, 0.0, Relevance("kubernetes helm", "database connection pooling"))
}

func TestRelevanceCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		Relevance("REDIS cache", "redis CACHE warming"),
		Relevance("redis cache", "Redis cache warming"))
}

func TestRelevanceRange(t *testing.T) {
	for _, tc := range []struct{ q, c string }{
		{"a", "b"},
		{"retry", "retry retry retry"},
		{"x y z", "x y z x y z"},
		{"long query with many distinct words here", "here"},
	} {
		score := Relevance(tc.q, tc.c)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestBoostByCentrality(t *testing.T) {
	// zero centrality shrinks the score by the blend weight
	assert.InDelta(t, 0.8, BoostByCentrality(1.0, 0.0), 1e-9)
	// full centrality tops it back up
	assert.InDelta(t, 1.0, BoostByCentrality(1.0, 1.0), 1e-9)
	assert.InDelta(t, 0.5, BoostByCentrality(0.5, 0.5), 1e-9)

	// never drops below score*(1-w)
	for _, score := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, centrality := range []float64{0, 0.5, 1} {
			boosted := BoostByCentrality(score, centrality)
			assert.GreaterOrEqual(t, boosted, score*(1-CentralityWeight)-1e-12)
			assert.LessOrEqual(t, boosted, 1.0)
		}
	}
}
