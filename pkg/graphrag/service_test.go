package graphrag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/graphrag-go/internal/persistence"
	"github.com/patternforge/graphrag-go/internal/pubsub"
)

func setupService(t *testing.T) *Service {
	svc, err := New(NewConfig(), persistence.NewMemory())
	require.NoError(t, err)
	require.NoError(t, svc.Initialize(context.Background()))
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestServiceStoreAndQuery(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.StorePattern(ctx, &Pattern{
		ID:          "pattern:cache",
		Pattern:     "Cache Redis lookups",
		Description: "Front PostgreSQL reads with a Redis cache",
		Agent:       "backend",
	}))

	matches, err := svc.QueryPatterns(&GraphRAGQuery{Text: "redis cache"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "pattern:cache", matches[0].Node.ID)

	// extracted entities are reachable through traversal
	neighbors, err := svc.Neighbors("pattern:cache")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"entity:redis", "entity:postgresql"}, neighbors)

	path, err := svc.ShortestPath("pattern:cache", "entity:redis")
	require.NoError(t, err)
	assert.Equal(t, []string{"pattern:cache", "entity:redis"}, path)

	walked, err := svc.Walk("pattern:cache", 1)
	require.NoError(t, err)
	assert.Len(t, walked, 3)
}

func TestServiceCommunitiesAndCentrality(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.StorePattern(ctx, &Pattern{ID: "p1", Pattern: "Redis caching"}))
	require.NoError(t, svc.StorePattern(ctx, &Pattern{ID: "p2", Pattern: "Kafka fanout"}))

	communities, err := svc.Communities()
	require.NoError(t, err)
	assert.Len(t, communities, 2)

	require.NoError(t, svc.CalculateCentrality())
	hubs, err := svc.HighCentralityNodes(0.9)
	require.NoError(t, err)
	assert.NotEmpty(t, hubs)
}

func TestServiceUsageLifecycle(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.StorePattern(ctx, &Pattern{ID: "p1", Pattern: "anything"}))
	require.NoError(t, svc.IncrementUsage(ctx, "p1"))

	node, err := svc.GetNode("p1")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, 1, node.UsageCount())

	// sweep with a cutoff in the future removes the freshly used pattern
	events, cancel := svc.Subscribe()
	defer cancel()
	removed, err := svc.DeleteOldPatterns(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	select {
	case ev := <-events:
		assert.Equal(t, pubsub.EventPatternsSwept, ev.Type)
		assert.Equal(t, 1, ev.Count)
	case <-time.After(time.Second):
		t.Fatal("expected a patterns_swept event")
	}
}

func TestServiceRawGraphOps(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.BatchAddNodes(ctx, []*GraphNode{
		{ID: "a", Type: "pattern", Label: "a"},
		{ID: "b", Type: "entity", Label: "b"},
	}))
	require.NoError(t, svc.AddEdge(ctx, &GraphEdge{ID: "e1", Source: "a", Target: "b", Relationship: "rel", Weight: 1}))

	nodes, edges := svc.Counts()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)

	require.NoError(t, svc.UpdateNode(ctx, "a", map[string]any{"k": "v"}))
	node, err := svc.GetNode("a")
	require.NoError(t, err)
	assert.Equal(t, "v", node.StringProp("k"))

	require.NoError(t, svc.DeleteEdge(ctx, "e1"))
	require.NoError(t, svc.DeleteNode(ctx, "b"))
	nodes, edges = svc.Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 0, edges)

	assert.Equal(t, "ready", svc.StateString())
	assert.Greater(t, svc.Version(), uint64(0))
}
