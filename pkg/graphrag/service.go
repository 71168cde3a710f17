// Package graphrag is the embedding-friendly facade over the pattern
// store: one Service owning the graph, the indexer, the query engine and
// the notification broker.
package graphrag

import (
	"context"
	"fmt"
	"time"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/extract"
	"github.com/patternforge/graphrag-go/internal/graph"
	"github.com/patternforge/graphrag-go/internal/index"
	"github.com/patternforge/graphrag-go/internal/persistence"
	"github.com/patternforge/graphrag-go/internal/pubsub"
	"github.com/patternforge/graphrag-go/internal/query"
)

// Re-exported types so embedders only import this package.
type (
	Pattern       = apptype.Pattern
	GraphNode     = apptype.GraphNode
	GraphEdge     = apptype.GraphEdge
	PrivacyScope  = apptype.PrivacyScope
	GraphRAGQuery = apptype.GraphRAGQuery
	QueryMatch    = apptype.QueryMatch
	Event         = pubsub.Event
)

// Service wires the store, traversal, analysis, indexing, querying and
// notifications behind one handle. It is safe for concurrent use.
type Service struct {
	cfg       *Config
	adapter   persistence.Adapter
	store     *graph.Store
	traverser *graph.Traverser
	analyzer  *graph.Analyzer
	indexer   *index.Indexer
	engine    *query.Engine
	broker    *pubsub.Broker
}

// New assembles a service over the given adapter without initializing it.
// Callers must Initialize before use.
func New(cfg *Config, adapter persistence.Adapter) (*Service, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	store := graph.NewStore(adapter)
	analyzer := graph.NewAnalyzer(store)
	engine, err := query.NewEngine(store, analyzer, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	broker := pubsub.NewBroker()
	return &Service{
		cfg:       cfg,
		adapter:   adapter,
		store:     store,
		traverser: graph.NewTraverser(store),
		analyzer:  analyzer,
		indexer:   index.NewIndexer(store, extract.NewFromEnv(), broker),
		engine:    engine,
		broker:    broker,
	}, nil
}

// Open creates the libSQL adapter from cfg, assembles the service and
// initializes it.
func Open(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	adapter, err := persistence.NewLibSQL(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	svc, err := New(cfg, adapter)
	if err != nil {
		adapter.Close()
		return nil, err
	}
	if err := svc.Initialize(ctx); err != nil {
		adapter.Close()
		return nil, err
	}
	return svc, nil
}

// Initialize bulk-loads the graph from persistence.
func (s *Service) Initialize(ctx context.Context) error {
	return s.store.Initialize(ctx)
}

// StorePattern indexes a pattern: node, extracted entities, mentions edges.
func (s *Service) StorePattern(ctx context.Context, pattern *Pattern) error {
	return s.indexer.StorePattern(ctx, pattern)
}

// QueryPatterns runs the scoped, ranked pattern query.
func (s *Service) QueryPatterns(q *GraphRAGQuery) ([]QueryMatch, error) {
	return s.engine.Query(q)
}

// GetNode returns a node by id, or nil if absent.
func (s *Service) GetNode(id string) (*GraphNode, error) {
	return s.store.GetNode(id)
}

// GetEdge returns an edge by id, or nil if absent.
func (s *Service) GetEdge(id string) (*GraphEdge, error) {
	return s.store.GetEdge(id)
}

// AddNode inserts or replaces a raw graph node.
func (s *Service) AddNode(ctx context.Context, node *GraphNode) error {
	return s.store.AddNode(ctx, node)
}

// BatchAddNodes inserts nodes with one version bump and one batched write.
func (s *Service) BatchAddNodes(ctx context.Context, nodes []*GraphNode) error {
	return s.store.BatchAddNodes(ctx, nodes)
}

// UpdateNode replaces an existing node's properties.
func (s *Service) UpdateNode(ctx context.Context, id string, properties map[string]any) error {
	return s.store.UpdateNode(ctx, id, properties)
}

// DeleteNode removes a node and every edge touching it.
func (s *Service) DeleteNode(ctx context.Context, id string) error {
	return s.store.DeleteNode(ctx, id)
}

// AddEdge inserts a directed weighted edge between existing nodes.
func (s *Service) AddEdge(ctx context.Context, edge *GraphEdge) error {
	return s.store.AddEdge(ctx, edge)
}

// DeleteEdge removes an edge by id.
func (s *Service) DeleteEdge(ctx context.Context, id string) error {
	return s.store.DeleteEdge(ctx, id)
}

// IncrementUsage records one use of a pattern.
func (s *Service) IncrementUsage(ctx context.Context, id string) error {
	return s.store.IncrementUsage(ctx, id)
}

// DeleteOldPatterns sweeps patterns unused since the cutoff and notifies
// subscribers when anything was removed.
func (s *Service) DeleteOldPatterns(ctx context.Context, cutoff time.Time) (int, error) {
	removed, err := s.store.DeleteOldPatterns(ctx, cutoff)
	if removed > 0 {
		s.broker.Publish(Event{Type: pubsub.EventPatternsSwept, Count: removed})
	}
	return removed, err
}

// Neighbors returns a node's direct out-neighbors.
func (s *Service) Neighbors(id string) ([]string, error) {
	return s.traverser.Neighbors(id)
}

// Walk walks breadth-first from startID up to maxDepth hops.
func (s *Service) Walk(startID string, maxDepth int) ([]string, error) {
	return s.traverser.BFS(startID, maxDepth)
}

// ShortestPath returns the node ids along a shortest directed path.
func (s *Service) ShortestPath(from, to string) ([]string, error) {
	return s.traverser.ShortestPath(from, to)
}

// CalculateCentrality recomputes degree centrality for every node.
func (s *Service) CalculateCentrality() error {
	return s.analyzer.CalculateCentrality()
}

// Communities groups nodes into connected components.
func (s *Service) Communities() ([][]string, error) {
	return s.analyzer.DetectCommunities()
}

// HighCentralityNodes returns nodes at or above the centrality threshold.
func (s *Service) HighCentralityNodes(threshold float64) ([]*GraphNode, error) {
	return s.analyzer.HighCentralityNodes(threshold)
}

// Nodes returns every node sorted by id.
func (s *Service) Nodes() []*GraphNode {
	return s.store.Nodes()
}

// Edges returns every edge sorted by id.
func (s *Service) Edges() []*GraphEdge {
	return s.store.Edges()
}

// Counts returns the node and edge counts.
func (s *Service) Counts() (nodes, edges int) {
	return s.store.Counts()
}

// Version returns the store's mutation version.
func (s *Service) Version() uint64 {
	return s.store.Version()
}

// StateString returns the store lifecycle state as text.
func (s *Service) StateString() string {
	return s.store.State().String()
}

// Subscribe registers for store notifications. Cancel to unsubscribe.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.broker.Subscribe(s.cfg.SubscriberBuffer)
}

// Close shuts the broker and the store down. The service is unusable
// afterwards.
func (s *Service) Close() error {
	s.broker.Close()
	return s.store.Close()
}
