package apptype

// Tool argument and result payloads for the MCP surface. Kept next to the
// core types so schemas are generated from one package.

// StorePatternArgs is the input for the store_pattern tool.
type StorePatternArgs struct {
	Pattern Pattern `json:"pattern"`
}

// QueryPatternsArgs is the input for the query_patterns tool.
type QueryPatternsArgs struct {
	Query GraphRAGQuery `json:"query"`
}

// QueryPatternsResult carries ranked matches.
type QueryPatternsResult struct {
	Matches []QueryMatch `json:"matches"`
	Count   int          `json:"count"`
}

// OpenNodeArgs is the input for the open_node tool.
type OpenNodeArgs struct {
	ID string `json:"id"`
}

// NodeResult carries a single node; Found is false when the id is unknown.
type NodeResult struct {
	Node  *GraphNode `json:"node,omitempty"`
	Found bool       `json:"found"`
}

// CreateEdgeArgs is the input for the create_edge tool.
type CreateEdgeArgs struct {
	Edge GraphEdge `json:"edge"`
}

// NeighborsArgs is the input for the neighbors tool.
type NeighborsArgs struct {
	ID string `json:"id"`
}

// WalkArgs is the input for the walk tool.
type WalkArgs struct {
	StartID  string `json:"startId"`
	MaxDepth int    `json:"maxDepth,omitempty"`
}

// ShortestPathArgs is the input for the shortest_path tool.
type ShortestPathArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// IDListResult carries an ordered list of node ids.
type IDListResult struct {
	IDs []string `json:"ids"`
}

// CommunitiesResult carries connected components, each a sorted id list.
type CommunitiesResult struct {
	Communities [][]string `json:"communities"`
}

// IncrementUsageArgs is the input for the increment_usage tool.
type IncrementUsageArgs struct {
	ID string `json:"id"`
}

// DeleteNodeArgs is the input for the delete_node tool.
type DeleteNodeArgs struct {
	ID string `json:"id"`
}

// DeleteEdgeArgs is the input for the delete_edge tool.
type DeleteEdgeArgs struct {
	ID string `json:"id"`
}

// DeleteOldPatternsArgs is the input for the delete_old_patterns tool.
type DeleteOldPatternsArgs struct {
	MaxAgeDays int `json:"maxAgeDays"`
}

// SweepResult reports how many patterns a sweep removed.
type SweepResult struct {
	Removed int `json:"removed"`
}

// HealthArgs is the (empty) input for the health_check tool.
type HealthArgs struct{}

// HealthResult reports server identity and store vitals.
type HealthResult struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Revision     string `json:"revision"`
	BuildDate    string `json:"buildDate"`
	State        string `json:"state"`
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
	GraphVersion uint64 `json:"graphVersion"`
}
