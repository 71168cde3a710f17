package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/graphrag-go/internal/apptype"
)

func TestCalculateCentrality(t *testing.T) {
	store := seedDiamond(t)
	an := NewAnalyzer(store)

	before := store.Version()
	require.NoError(t, an.CalculateCentrality())
	// derived state, no mutation version bump
	assert.Equal(t, before, store.Version())

	// max out-degree is 2 (node a)
	a, err := store.GetNode("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.Centrality)

	b, err := store.GetNode("b")
	require.NoError(t, err)
	assert.Equal(t, 0.5, b.Centrality)

	d, err := store.GetNode("d")
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Centrality)

	island, err := store.GetNode("island")
	require.NoError(t, err)
	assert.Equal(t, 0.0, island.Centrality)
}

func TestCalculateCentralityEmptyGraph(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddNode(ctx, patternNode("solo", "solo")))

	an := NewAnalyzer(store)
	require.NoError(t, an.CalculateCentrality())

	node, err := store.GetNode("solo")
	require.NoError(t, err)
	assert.Equal(t, 0.0, node.Centrality)
}

func TestDetectCommunities(t *testing.T) {
	store := seedDiamond(t)
	ctx := context.Background()

	// second component: x <-> y, direction must not matter
	require.NoError(t, store.AddNode(ctx, patternNode("x", "x")))
	require.NoError(t, store.AddNode(ctx, patternNode("y", "y")))
	require.NoError(t, store.AddEdge(ctx, &apptype.GraphEdge{ID: "yx", Source: "y", Target: "x", Relationship: "rel", Weight: 1}))

	an := NewAnalyzer(store)
	communities, err := an.DetectCommunities()
	require.NoError(t, err)
	require.Len(t, communities, 3)

	// deterministic: components sorted by their smallest id
	assert.Equal(t, []string{"a", "b", "c", "d"}, communities[0])
	assert.Equal(t, []string{"island"}, communities[1])
	assert.Equal(t, []string{"x", "y"}, communities[2])
}

func TestHighCentralityNodes(t *testing.T) {
	store := seedDiamond(t)
	an := NewAnalyzer(store)
	require.NoError(t, an.CalculateCentrality())

	nodes, err := an.HighCentralityNodes(0.5)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "a", nodes[0].ID)
	// ties broken by id
	assert.Equal(t, "b", nodes[1].ID)
	assert.Equal(t, "c", nodes[2].ID)

	nodes, err = an.HighCentralityNodes(1.1)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
