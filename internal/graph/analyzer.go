package graph

import (
	"sort"

	"github.com/patternforge/graphrag-go/internal/apptype"
)

// Analyzer derives structural scores from the graph: degree centrality and
// connected-component communities. It is the only writer of the
// Centrality field.
type Analyzer struct {
	store *Store
}

// NewAnalyzer creates an analyzer over the given store.
func NewAnalyzer(store *Store) *Analyzer {
	return &Analyzer{store: store}
}

// CalculateCentrality recomputes degree centrality for every node:
// out-degree divided by the maximum degree in the graph, 0 everywhere if
// the graph has no edges. Centrality is derived state and does not bump
// the mutation version.
func (a *Analyzer) CalculateCentrality() error {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReady(); err != nil {
		return err
	}

	maxDegree := 0
	for _, adj := range s.adjacency {
		if len(adj) > maxDegree {
			maxDegree = len(adj)
		}
	}
	if len(s.edges) == 0 || maxDegree == 0 {
		for _, node := range s.nodes {
			node.Centrality = 0
		}
		return nil
	}
	for id, node := range s.nodes {
		node.Centrality = float64(len(s.adjacency[id])) / float64(maxDegree)
	}
	return nil
}

// DetectCommunities groups nodes into connected components, ignoring edge
// direction. Components and their members are sorted by id so the result
// is deterministic.
func (a *Analyzer) DetectCommunities() ([][]string, error) {
	s := a.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	undirected := make(map[string][]string, len(s.nodes))
	for _, edge := range s.edges {
		undirected[edge.Source] = append(undirected[edge.Source], edge.Target)
		undirected[edge.Target] = append(undirected[edge.Target], edge.Source)
	}

	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool, len(ids))
	var communities [][]string
	for _, start := range ids {
		if visited[start] {
			continue
		}
		visited[start] = true
		component := []string{start}
		queue := []string{start}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, neighbor := range undirected[current] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				component = append(component, neighbor)
				queue = append(queue, neighbor)
			}
		}
		sort.Strings(component)
		communities = append(communities, component)
	}
	return communities, nil
}

// HighCentralityNodes returns nodes whose centrality is at or above the
// threshold, most central first.
func (a *Analyzer) HighCentralityNodes(threshold float64) ([]*apptype.GraphNode, error) {
	s := a.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	var nodes []*apptype.GraphNode
	for _, node := range s.nodes {
		if node.Centrality >= threshold {
			nodes = append(nodes, node)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Centrality != nodes[j].Centrality {
			return nodes[i].Centrality > nodes[j].Centrality
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes, nil
}
