package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/graph"
	"github.com/patternforge/graphrag-go/internal/persistence"
)

func boolPtr(b bool) *bool { return &b }

func setupEngine(t *testing.T) (*Engine, *graph.Store) {
	store := graph.NewStore(persistence.NewMemory())
	require.NoError(t, store.Initialize(context.Background()))
	engine, err := NewEngine(store, graph.NewAnalyzer(store), 0)
	require.NoError(t, err)
	return engine, store
}

func storePattern(t *testing.T, store *graph.Store, p apptype.Pattern) {
	node := p.Node()
	require.NoError(t, store.AddNode(context.Background(), node))
}

func TestQueryTextRanking(t *testing.T) {
	engine, store := setupEngine(t)

	storePattern(t, store, apptype.Pattern{ID: "p-retry", Pattern: "Retry with exponential backoff"})
	storePattern(t, store, apptype.Pattern{ID: "p-cache", Pattern: "Cache warming on deploy"})
	storePattern(t, store, apptype.Pattern{ID: "p-pool", Pattern: "Connection pooling"})

	matches, err := engine.Query(&apptype.GraphRAGQuery{Text: "exponential backoff retry", MinRelevance: 0.1})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "p-retry", matches[0].Node.ID)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.1)
	}
}

func TestQueryFilters(t *testing.T) {
	engine, store := setupEngine(t)

	storePattern(t, store, apptype.Pattern{ID: "p1", Pattern: "alpha", Agent: "backend", Category: "perf", Tags: []string{"go", "cache"}})
	storePattern(t, store, apptype.Pattern{ID: "p2", Pattern: "alpha", Agent: "frontend", Category: "perf", Tags: []string{"cache"}})
	storePattern(t, store, apptype.Pattern{ID: "p3", Pattern: "alpha", Agent: "backend", Category: "infra"})

	matches, err := engine.Query(&apptype.GraphRAGQuery{Agent: "backend"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = engine.Query(&apptype.GraphRAGQuery{Agent: "backend", Category: "perf"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p1", matches[0].Node.ID)

	// every query tag must be present on the pattern
	matches, err = engine.Query(&apptype.GraphRAGQuery{Tags: []string{"cache", "go"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p1", matches[0].Node.ID)

	matches, err = engine.Query(&apptype.GraphRAGQuery{Tags: []string{"cache"}})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestQueryPrivacy(t *testing.T) {
	engine, store := setupEngine(t)

	storePattern(t, store, apptype.Pattern{ID: "p-public", Pattern: "alpha"})
	storePattern(t, store, apptype.Pattern{ID: "p-user", Pattern: "alpha", Privacy: &apptype.PrivacyScope{UserID: "u1"}})
	storePattern(t, store, apptype.Pattern{ID: "p-team", Pattern: "alpha", Privacy: &apptype.PrivacyScope{TeamID: "t1"}})

	matches, err := engine.Query(&apptype.GraphRAGQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = engine.Query(&apptype.GraphRAGQuery{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p-public", matches[0].Node.ID)

	// own patterns only, public excluded
	matches, err = engine.Query(&apptype.GraphRAGQuery{UserID: "u1", IncludePublic: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p-user", matches[0].Node.ID)

	matches, err = engine.Query(&apptype.GraphRAGQuery{TeamID: "t1"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestQueryCentralityBoost(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()

	// identical text, but p-hub is heavily connected
	storePattern(t, store, apptype.Pattern{ID: "p-hub", Pattern: "Redis caching"})
	storePattern(t, store, apptype.Pattern{ID: "p-leaf", Pattern: "Redis caching"})
	for _, id := range []string{"entity:a", "entity:b", "entity:c"} {
		require.NoError(t, store.AddNode(ctx, &apptype.GraphNode{ID: id, Type: apptype.NodeTypeEntity, Label: id}))
		require.NoError(t, store.AddEdge(ctx, &apptype.GraphEdge{Source: "p-hub", Target: id, Relationship: apptype.EdgeMentions, Weight: 1}))
	}

	matches, err := engine.Query(&apptype.GraphRAGQuery{Text: "redis caching"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(matches), 2)
	assert.Equal(t, "p-hub", matches[0].Node.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestQueryTieBreaks(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()

	storePattern(t, store, apptype.Pattern{ID: "p-b", Pattern: "same text"})
	storePattern(t, store, apptype.Pattern{ID: "p-a", Pattern: "same text"})
	storePattern(t, store, apptype.Pattern{ID: "p-used", Pattern: "same text"})
	require.NoError(t, store.IncrementUsage(ctx, "p-used"))

	matches, err := engine.Query(&apptype.GraphRAGQuery{Text: "same text"})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	// equal scores: usage count first, then id
	assert.Equal(t, "p-used", matches[0].Node.ID)
	assert.Equal(t, "p-a", matches[1].Node.ID)
	assert.Equal(t, "p-b", matches[2].Node.ID)
}

func TestQueryMinRelevanceAndLimit(t *testing.T) {
	engine, store := setupEngine(t)

	storePattern(t, store, apptype.Pattern{ID: "p-hit", Pattern: "kafka consumer rebalancing"})
	storePattern(t, store, apptype.Pattern{ID: "p-miss", Pattern: "terraform state locking"})

	matches, err := engine.Query(&apptype.GraphRAGQuery{Text: "kafka rebalancing", MinRelevance: 0.5})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p-hit", matches[0].Node.ID)

	for i := 0; i < 20; i++ {
		storePattern(t, store, apptype.Pattern{ID: string(rune('a'+i)) + "-filler", Pattern: "filler"})
	}
	// no limit means every visible candidate comes back
	matches, err = engine.Query(&apptype.GraphRAGQuery{})
	require.NoError(t, err)
	assert.Len(t, matches, 22)

	matches, err = engine.Query(&apptype.GraphRAGQuery{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestQueryUnboundedWithoutLimit(t *testing.T) {
	engine, store := setupEngine(t)

	for i := 0; i < 15; i++ {
		storePattern(t, store, apptype.Pattern{ID: fmt.Sprintf("p%02d", i), Pattern: "shared text"})
	}
	matches, err := engine.Query(&apptype.GraphRAGQuery{})
	require.NoError(t, err)
	require.Len(t, matches, 15)
}

func TestQueryEmptyResultNotNil(t *testing.T) {
	engine, _ := setupEngine(t)

	matches, err := engine.Query(&apptype.GraphRAGQuery{Text: "anything"})
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestQueryCacheInvalidationOnMutation(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()

	storePattern(t, store, apptype.Pattern{ID: "p1", Pattern: "alpha"})

	q := &apptype.GraphRAGQuery{Text: "alpha"}
	first, err := engine.Query(q)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// cached: same version, same result
	second, err := engine.Query(q)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// any mutation bumps the version and invalidates the cache
	storePattern(t, store, apptype.Pattern{ID: "p2", Pattern: "alpha again"})
	third, err := engine.Query(q)
	require.NoError(t, err)
	assert.Len(t, third, 2)

	// deletions invalidate too
	require.NoError(t, store.DeleteNode(ctx, "p2"))
	fourth, err := engine.Query(q)
	require.NoError(t, err)
	assert.Len(t, fourth, 1)
}

func TestQueryNotReady(t *testing.T) {
	store := graph.NewStore(persistence.NewMemory())
	engine, err := NewEngine(store, graph.NewAnalyzer(store), 0)
	require.NoError(t, err)

	var notInit *graph.NotInitializedError
	_, err = engine.Query(&apptype.GraphRAGQuery{Text: "x"})
	require.ErrorAs(t, err, &notInit)
}

func TestQueryResultsAreCopies(t *testing.T) {
	engine, store := setupEngine(t)

	storePattern(t, store, apptype.Pattern{ID: "p1", Pattern: "alpha"})
	matches, err := engine.Query(&apptype.GraphRAGQuery{Text: "alpha"})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// mutating a result must not leak into the store
	matches[0].Node.Label = "tampered"
	node, err := store.GetNode("p1")
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", node.Label)
}
