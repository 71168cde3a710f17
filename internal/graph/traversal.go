package graph

// Traverser provides read-only traversal over the store's adjacency index.
// Traversals follow edge direction (source -> target) and are bounded by
// depth, not by timeout.
type Traverser struct {
	store *Store
}

// NewTraverser creates a traverser over the given store.
func NewTraverser(store *Store) *Traverser {
	return &Traverser{store: store}
}

// BFS walks breadth-first from startID up to maxDepth hops, visiting each
// node at most once, and returns node ids in first-visit order. The start
// node is depth 0, so maxDepth 0 returns just the start. Unknown start ids
// yield an empty result.
func (t *Traverser) BFS(startID string, maxDepth int) ([]string, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if _, ok := s.nodes[startID]; !ok {
		return []string{}, nil
	}

	visited := map[string]bool{startID: true}
	order := []string{startID}
	frontier := []string{startID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range s.adjacency[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				order = append(order, neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return order, nil
}

// ShortestPath returns the node ids along a shortest path from `from` to
// `to` inclusive, using BFS with parent backtracking. `from == to` yields
// a single-element path; unreachable targets yield an empty result.
func (t *Traverser) ShortestPath(from, to string) ([]string, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if _, ok := s.nodes[from]; !ok {
		return []string{}, nil
	}
	if _, ok := s.nodes[to]; !ok {
		return []string{}, nil
	}
	if from == to {
		return []string{from}, nil
	}

	parents := make(map[string]string)
	visited := map[string]bool{from: true}
	queue := []string{from}
	found := false
	for len(queue) > 0 && !found {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range s.adjacency[current] {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			parents[neighbor] = current
			if neighbor == to {
				found = true
				break
			}
			queue = append(queue, neighbor)
		}
	}
	if !found {
		return []string{}, nil
	}

	// reconstruct path by walking parent pointers back to from
	path := []string{to}
	for current := to; current != from; {
		current = parents[current]
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Neighbors returns the direct out-neighbors of a node. Unknown or
// isolated nodes yield an empty result.
func (t *Traverser) Neighbors(id string) ([]string, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return append([]string{}, s.adjacency[id]...), nil
}
