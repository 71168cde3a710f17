package graph

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/metrics"
	"github.com/patternforge/graphrag-go/internal/persistence"
)

// State tracks the store lifecycle: Uninitialized -> Initializing -> Ready -> Closed.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Store is the authoritative in-memory graph: node and edge maps plus the
// adjacency index, fronting one persistence backend.
//
// Mutations apply in memory first and then persist best-effort
// (write-behind): a persistence failure surfaces as a ConnectionError but
// the in-memory change stays. Callers needing strict durability must retry
// the persistence themselves. The design assumes a single logical writer
// per store instance; the mutex makes individual operations safe, not
// cross-process writes.
type Store struct {
	mu      sync.RWMutex
	adapter persistence.Adapter

	nodes     map[string]*apptype.GraphNode
	edges     map[string]*apptype.GraphEdge
	adjacency map[string][]string
	byTriple  map[string]string // (source, target, relationship) -> edge id

	version uint64
	state   State
}

// NewStore creates a store backed by the given adapter. The store is
// unusable until Initialize succeeds.
func NewStore(adapter persistence.Adapter) *Store {
	return &Store{
		adapter:   adapter,
		nodes:     make(map[string]*apptype.GraphNode),
		edges:     make(map[string]*apptype.GraphEdge),
		adjacency: make(map[string][]string),
		byTriple:  make(map[string]string),
		state:     StateUninitialized,
	}
}

func tripleKey(source, target, relationship string) string {
	return source + "\x00" + target + "\x00" + relationship
}

// Initialize bulk-loads the graph from the adapter. A load failure is fatal:
// the store is left Uninitialized and never starts half-loaded.
func (s *Store) Initialize(ctx context.Context) error {
	done := metrics.TimeOp("store_initialize")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if s.state != StateUninitialized {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("store already initialized (state: %s)", state)
	}
	s.state = StateInitializing
	s.mu.Unlock()

	nodes, err := s.adapter.LoadNodes(ctx)
	if err != nil {
		s.setState(StateUninitialized)
		return &ConnectionError{Op: "initialize", Err: err}
	}
	edges, err := s.adapter.LoadEdges(ctx)
	if err != nil {
		s.setState(StateUninitialized)
		return &ConnectionError{Op: "initialize", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range nodes {
		node := nodes[i]
		s.nodes[node.ID] = &node
		s.adjacency[node.ID] = []string{}
	}
	for i := range edges {
		edge := edges[i]
		if _, ok := s.nodes[edge.Source]; !ok {
			log.Printf("Warning: Skipping persisted edge %q: unknown source %q", edge.ID, edge.Source)
			continue
		}
		if _, ok := s.nodes[edge.Target]; !ok {
			log.Printf("Warning: Skipping persisted edge %q: unknown target %q", edge.ID, edge.Target)
			continue
		}
		key := tripleKey(edge.Source, edge.Target, edge.Relationship)
		if _, ok := s.byTriple[key]; ok {
			log.Printf("Warning: Skipping duplicate persisted edge %q (%s -> %s, %s)", edge.ID, edge.Source, edge.Target, edge.Relationship)
			continue
		}
		s.edges[edge.ID] = &edge
		s.byTriple[key] = edge.ID
		s.adjacency[edge.Source] = append(s.adjacency[edge.Source], edge.Target)
	}
	// Adjacency is rebuilt from the edge set on every load; the persisted
	// Connections field is informational only.
	for id := range s.nodes {
		s.syncConnections(id)
	}
	s.state = StateReady
	success = true
	return nil
}

func (s *Store) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// ensureReady must be called with the lock held.
func (s *Store) ensureReady() error {
	if s.state != StateReady {
		return &NotInitializedError{State: s.state}
	}
	return nil
}

// syncConnections mirrors the adjacency entry onto the node. Must be
// called with the lock held.
func (s *Store) syncConnections(id string) {
	if node, ok := s.nodes[id]; ok {
		node.Connections = append([]string(nil), s.adjacency[id]...)
	}
}

func validateNode(node *apptype.GraphNode) error {
	if node == nil {
		return &ValidationError{Field: "node", Reason: "node is nil"}
	}
	if node.ID == "" {
		return &ValidationError{Field: "id", Reason: "node id is required"}
	}
	if node.Type == "" {
		return &ValidationError{Field: "type", Reason: "node type is required"}
	}
	if node.Label == "" {
		return &ValidationError{Field: "label", Reason: "node label is required"}
	}
	if err := node.Privacy.Validate(); err != nil {
		return &ValidationError{Field: "privacy", Reason: err.Error()}
	}
	return nil
}

// AddNode inserts (or replaces) a node, initializing its adjacency entry
// and bumping the mutation version.
func (s *Store) AddNode(ctx context.Context, node *apptype.GraphNode) error {
	done := metrics.TimeOp("store_add_node")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := validateNode(node); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.adjacency[node.ID]; !ok {
		s.adjacency[node.ID] = []string{}
	}
	s.nodes[node.ID] = node
	s.syncConnections(node.ID)
	s.version++
	s.mu.Unlock()

	if err := s.adapter.PersistNode(ctx, node); err != nil {
		return &ConnectionError{Op: "addNode", Err: err}
	}
	success = true
	return nil
}

// UpdateNode replaces the properties of an existing node, except for the
// usage bookkeeping keys: usageCount and lastUsed are carried over from
// the current properties, since IncrementUsage is their only mutation
// path. Unknown ids are a no-op: UpdateNode never creates.
func (s *Store) UpdateNode(ctx context.Context, id string, properties map[string]any) error {
	done := metrics.TimeOp("store_update_node")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		success = true
		return nil
	}
	if properties == nil {
		properties = make(map[string]any)
	}
	if v, ok := node.Properties[apptype.PropUsageCount]; ok {
		properties[apptype.PropUsageCount] = v
	}
	if v, ok := node.Properties[apptype.PropLastUsed]; ok {
		properties[apptype.PropLastUsed] = v
	}
	node.Properties = properties
	s.version++
	s.mu.Unlock()

	if err := s.adapter.PersistNode(ctx, node); err != nil {
		return &ConnectionError{Op: "updateNode", Err: err}
	}
	success = true
	return nil
}

// deleteNodeLocked removes a node and every edge touching it, returning the
// removed edge ids. Must be called with the lock held.
func (s *Store) deleteNodeLocked(id string) (removedEdges []string, ok bool) {
	if _, ok := s.nodes[id]; !ok {
		return nil, false
	}
	for edgeID, edge := range s.edges {
		if edge.Source != id && edge.Target != id {
			continue
		}
		removedEdges = append(removedEdges, edgeID)
		delete(s.edges, edgeID)
		delete(s.byTriple, tripleKey(edge.Source, edge.Target, edge.Relationship))
		if edge.Source != id {
			s.removeAdjacency(edge.Source, edge.Target)
			s.syncConnections(edge.Source)
		}
	}
	delete(s.adjacency, id)
	delete(s.nodes, id)
	return removedEdges, true
}

// removeAdjacency drops one occurrence of target from source's adjacency.
// Must be called with the lock held.
func (s *Store) removeAdjacency(source, target string) {
	adj := s.adjacency[source]
	for i, t := range adj {
		if t == target {
			s.adjacency[source] = append(adj[:i], adj[i+1:]...)
			return
		}
	}
}

// DeleteNode removes a node, cascading removal of every edge that touches
// it and of its entry in other nodes' adjacency lists. Unknown ids are a
// no-op.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	done := metrics.TimeOp("store_delete_node")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	removedEdges, ok := s.deleteNodeLocked(id)
	if !ok {
		s.mu.Unlock()
		success = true
		return nil
	}
	s.version++
	s.mu.Unlock()

	var firstErr error
	if err := s.adapter.DeleteNode(ctx, id); err != nil {
		firstErr = err
	}
	for _, edgeID := range removedEdges {
		if err := s.adapter.DeleteEdge(ctx, edgeID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return &ConnectionError{Op: "deleteNode", Err: firstErr}
	}
	success = true
	return nil
}

// AddEdge inserts an edge between two existing nodes, updating the
// source's adjacency. Re-adding an identical (source, target, relationship)
// triple overwrites the weight instead of creating a parallel entry. An
// empty edge id is filled with a generated one.
func (s *Store) AddEdge(ctx context.Context, edge *apptype.GraphEdge) error {
	done := metrics.TimeOp("store_add_edge")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	if edge == nil {
		s.mu.Unlock()
		return &ValidationError{Field: "edge", Reason: "edge is nil"}
	}
	if edge.Source == "" || edge.Target == "" || edge.Relationship == "" {
		s.mu.Unlock()
		return &ValidationError{Field: "edge", Reason: "source, target and relationship are required"}
	}
	if _, ok := s.nodes[edge.Source]; !ok {
		s.mu.Unlock()
		return &ValidationError{Field: "source", Reason: fmt.Sprintf("unknown node id %q", edge.Source)}
	}
	if _, ok := s.nodes[edge.Target]; !ok {
		s.mu.Unlock()
		return &ValidationError{Field: "target", Reason: fmt.Sprintf("unknown node id %q", edge.Target)}
	}
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	key := tripleKey(edge.Source, edge.Target, edge.Relationship)
	if existingID, ok := s.byTriple[key]; ok {
		existing := s.edges[existingID]
		existing.Weight = edge.Weight
		s.version++
		s.mu.Unlock()
		if err := s.adapter.PersistEdge(ctx, existing); err != nil {
			return &ConnectionError{Op: "addEdge", Err: err}
		}
		success = true
		return nil
	}

	s.edges[edge.ID] = edge
	s.byTriple[key] = edge.ID
	s.adjacency[edge.Source] = append(s.adjacency[edge.Source], edge.Target)
	s.syncConnections(edge.Source)
	s.version++
	s.mu.Unlock()

	if err := s.adapter.PersistEdge(ctx, edge); err != nil {
		return &ConnectionError{Op: "addEdge", Err: err}
	}
	success = true
	return nil
}

// DeleteEdge removes an edge by id. Unknown ids are a no-op.
func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	done := metrics.TimeOp("store_delete_edge")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	edge, ok := s.edges[id]
	if !ok {
		s.mu.Unlock()
		success = true
		return nil
	}
	delete(s.edges, id)
	delete(s.byTriple, tripleKey(edge.Source, edge.Target, edge.Relationship))
	s.removeAdjacency(edge.Source, edge.Target)
	s.syncConnections(edge.Source)
	s.version++
	s.mu.Unlock()

	if err := s.adapter.DeleteEdge(ctx, id); err != nil {
		return &ConnectionError{Op: "deleteEdge", Err: err}
	}
	success = true
	return nil
}

// BatchAddNodes inserts all nodes with a single version bump and a single
// batched persistence write. Validation failures reject the whole batch
// before anything is applied.
func (s *Store) BatchAddNodes(ctx context.Context, nodes []*apptype.GraphNode) error {
	done := metrics.TimeOp("store_batch_add_nodes")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	for _, node := range nodes {
		if err := validateNode(node); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	for _, node := range nodes {
		if _, ok := s.adjacency[node.ID]; !ok {
			s.adjacency[node.ID] = []string{}
		}
		s.nodes[node.ID] = node
		s.syncConnections(node.ID)
	}
	if len(nodes) > 0 {
		s.version++
	}
	s.mu.Unlock()

	if err := s.adapter.BatchPersistNodes(ctx, nodes); err != nil {
		return &ConnectionError{Op: "batchAddNodes", Err: err}
	}
	success = true
	return nil
}

// IncrementUsage bumps a pattern's usage counter and refreshes its
// last-used timestamp. This is the only mutation path for usageCount.
// Unknown ids are a no-op.
func (s *Store) IncrementUsage(ctx context.Context, id string) error {
	done := metrics.TimeOp("store_increment_usage")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		success = true
		return nil
	}
	if node.Properties == nil {
		node.Properties = make(map[string]any)
	}
	node.Properties[apptype.PropUsageCount] = node.UsageCount() + 1
	node.Properties[apptype.PropLastUsed] = time.Now().UTC().Format(time.RFC3339)
	s.version++
	s.mu.Unlock()

	if err := s.adapter.PersistNode(ctx, node); err != nil {
		return &ConnectionError{Op: "incrementUsage", Err: err}
	}
	success = true
	return nil
}

// DeleteOldPatterns removes pattern nodes whose last-used timestamp
// predates the cutoff, cascading edge removal like DeleteNode. Patterns
// without a last-used timestamp are left alone. Returns the number of
// patterns removed.
func (s *Store) DeleteOldPatterns(ctx context.Context, cutoff time.Time) (int, error) {
	done := metrics.TimeOp("store_delete_old_patterns")
	success := false
	defer func() { done(success) }()

	s.mu.Lock()
	if err := s.ensureReady(); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	var stale []string
	for id, node := range s.nodes {
		if !node.IsPattern() {
			continue
		}
		lastUsed := node.LastUsed()
		if !lastUsed.IsZero() && lastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	var removedEdges []string
	for _, id := range stale {
		edges, _ := s.deleteNodeLocked(id)
		removedEdges = append(removedEdges, edges...)
	}
	if len(stale) > 0 {
		s.version++
	}
	s.mu.Unlock()

	var firstErr error
	for _, id := range stale {
		if err := s.adapter.DeleteNode(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, edgeID := range removedEdges {
		if err := s.adapter.DeleteEdge(ctx, edgeID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return len(stale), &ConnectionError{Op: "deleteOldPatterns", Err: firstErr}
	}
	success = true
	return len(stale), nil
}

// GetNode returns the node with the given id, or nil if absent. Missing
// ids are not an error.
func (s *Store) GetNode(id string) (*apptype.GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return s.nodes[id], nil
}

// GetEdge returns the edge with the given id, or nil if absent.
func (s *Store) GetEdge(id string) (*apptype.GraphEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return s.edges[id], nil
}

// Version returns the current mutation version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Nodes returns all nodes sorted by id.
func (s *Store) Nodes() []*apptype.GraphNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]*apptype.GraphNode, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// PatternNodes returns all pattern nodes sorted by id.
func (s *Store) PatternNodes() []*apptype.GraphNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var nodes []*apptype.GraphNode
	for _, node := range s.nodes {
		if node.IsPattern() {
			nodes = append(nodes, node)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges sorted by id.
func (s *Store) Edges() []*apptype.GraphEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := make([]*apptype.GraphEdge, 0, len(s.edges))
	for _, edge := range s.edges {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// Counts returns the number of nodes and edges.
func (s *Store) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// Close transitions the store to Closed and releases the adapter. Writes
// are already best-effort per mutation, so there is nothing to flush.
// Every call after Close fails with NotInitializedError.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return &NotInitializedError{State: StateClosed}
	}
	s.state = StateClosed
	s.mu.Unlock()
	return s.adapter.Close()
}
