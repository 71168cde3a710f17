package persistence

import (
	"context"

	"github.com/patternforge/graphrag-go/internal/apptype"
)

// Adapter is the durable backend behind the in-memory graph store.
// Implementations must be safe for concurrent use. The store treats every
// call as best-effort write-behind except the two bulk loads, which gate
// initialization.
type Adapter interface {
	// LoadNodes returns every persisted node.
	LoadNodes(ctx context.Context) ([]apptype.GraphNode, error)
	// LoadEdges returns every persisted edge.
	LoadEdges(ctx context.Context) ([]apptype.GraphEdge, error)
	// PersistNode inserts or replaces a node.
	PersistNode(ctx context.Context, node *apptype.GraphNode) error
	// PersistEdge inserts or replaces an edge.
	PersistEdge(ctx context.Context, edge *apptype.GraphEdge) error
	// DeleteNode removes a node by id. Missing ids are not an error.
	DeleteNode(ctx context.Context, id string) error
	// DeleteEdge removes an edge by id. Missing ids are not an error.
	DeleteEdge(ctx context.Context, id string) error
	// BatchPersistNodes inserts or replaces many nodes in one write.
	BatchPersistNodes(ctx context.Context, nodes []*apptype.GraphNode) error
	// Close releases backend resources.
	Close() error
}
