package persistence

import (
	"context"
	"sync"

	"github.com/patternforge/graphrag-go/internal/apptype"
)

// MemoryAdapter is an Adapter that keeps everything in process memory.
// It backs purely ephemeral stores and the unit tests. LoadErr and
// PersistErr, when set, are returned by the corresponding operations so
// failure paths can be exercised.
type MemoryAdapter struct {
	mu    sync.Mutex
	nodes map[string]apptype.GraphNode
	edges map[string]apptype.GraphEdge

	LoadErr    error
	PersistErr error

	nodeWrites  int
	edgeWrites  int
	batchWrites int
}

// NewMemory creates an empty in-memory adapter.
func NewMemory() *MemoryAdapter {
	return &MemoryAdapter{
		nodes: make(map[string]apptype.GraphNode),
		edges: make(map[string]apptype.GraphEdge),
	}
}

func (m *MemoryAdapter) LoadNodes(ctx context.Context) ([]apptype.GraphNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	nodes := make([]apptype.GraphNode, 0, len(m.nodes))
	for _, n := range m.nodes {
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (m *MemoryAdapter) LoadEdges(ctx context.Context) ([]apptype.GraphEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	edges := make([]apptype.GraphEdge, 0, len(m.edges))
	for _, e := range m.edges {
		edges = append(edges, e)
	}
	return edges, nil
}

func (m *MemoryAdapter) PersistNode(ctx context.Context, node *apptype.GraphNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PersistErr != nil {
		return m.PersistErr
	}
	m.nodes[node.ID] = *node
	m.nodeWrites++
	return nil
}

func (m *MemoryAdapter) PersistEdge(ctx context.Context, edge *apptype.GraphEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PersistErr != nil {
		return m.PersistErr
	}
	m.edges[edge.ID] = *edge
	m.edgeWrites++
	return nil
}

func (m *MemoryAdapter) DeleteNode(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PersistErr != nil {
		return m.PersistErr
	}
	delete(m.nodes, id)
	return nil
}

func (m *MemoryAdapter) DeleteEdge(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PersistErr != nil {
		return m.PersistErr
	}
	delete(m.edges, id)
	return nil
}

func (m *MemoryAdapter) BatchPersistNodes(ctx context.Context, nodes []*apptype.GraphNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PersistErr != nil {
		return m.PersistErr
	}
	for _, n := range nodes {
		m.nodes[n.ID] = *n
	}
	m.batchWrites++
	return nil
}

func (m *MemoryAdapter) Close() error { return nil }

// WriteCounts reports how many node, edge and batch writes have landed.
func (m *MemoryAdapter) WriteCounts() (nodeWrites, edgeWrites, batchWrites int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodeWrites, m.edgeWrites, m.batchWrites
}
