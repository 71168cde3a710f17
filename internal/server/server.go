package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/buildinfo"
	"github.com/patternforge/graphrag-go/internal/metrics"
	"github.com/patternforge/graphrag-go/pkg/graphrag"
)

const defaultWalkDepth = 2

// MCPServer exposes the pattern store over the MCP protocol.
type MCPServer struct {
	server *mcp.Server
	svc    *graphrag.Service
}

// NewMCPServer creates an MCP server over an initialized service.
func NewMCPServer(svc *graphrag.Service) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "graphrag-go",
		Version: buildinfo.Version,
	}, nil)

	mcpServer := &MCPServer{
		server: server,
		svc:    svc,
	}

	// initialize metrics from env (no-op if disabled)
	metrics.InitFromEnv()
	mcpServer.setupToolHandlers()
	return mcpServer
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	storePatternInputSchema, err := jsonschema.For[apptype.StorePatternArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for StorePatternArgs: %v", err))
	}
	queryPatternsInputSchema, err := jsonschema.For[apptype.QueryPatternsArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for QueryPatternsArgs: %v", err))
	}
	queryPatternsOutputSchema, err := jsonschema.For[apptype.QueryPatternsResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for QueryPatternsResult: %v", err))
	}
	openNodeInputSchema, err := jsonschema.For[apptype.OpenNodeArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for OpenNodeArgs: %v", err))
	}
	openNodeOutputSchema, err := jsonschema.For[apptype.NodeResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for NodeResult: %v", err))
	}
	createEdgeInputSchema, err := jsonschema.For[apptype.CreateEdgeArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for CreateEdgeArgs: %v", err))
	}
	neighborsInputSchema, err := jsonschema.For[apptype.NeighborsArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for NeighborsArgs: %v", err))
	}
	neighborsOutputSchema, err := jsonschema.For[apptype.IDListResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for IDListResult (neighbors): %v", err))
	}
	walkInputSchema, err := jsonschema.For[apptype.WalkArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for WalkArgs: %v", err))
	}
	walkOutputSchema, err := jsonschema.For[apptype.IDListResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for IDListResult (walk): %v", err))
	}
	shortestInputSchema, err := jsonschema.For[apptype.ShortestPathArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for ShortestPathArgs: %v", err))
	}
	shortestOutputSchema, err := jsonschema.For[apptype.IDListResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for IDListResult (shortest_path): %v", err))
	}
	communitiesInputSchema, err := jsonschema.For[apptype.HealthArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthArgs (communities): %v", err))
	}
	communitiesOutputSchema, err := jsonschema.For[apptype.CommunitiesResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for CommunitiesResult: %v", err))
	}
	incrementUsageInputSchema, err := jsonschema.For[apptype.IncrementUsageArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for IncrementUsageArgs: %v", err))
	}
	deleteNodeInputSchema, err := jsonschema.For[apptype.DeleteNodeArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for DeleteNodeArgs: %v", err))
	}
	deleteEdgeInputSchema, err := jsonschema.For[apptype.DeleteEdgeArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for DeleteEdgeArgs: %v", err))
	}
	deleteOldInputSchema, err := jsonschema.For[apptype.DeleteOldPatternsArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for DeleteOldPatternsArgs: %v", err))
	}
	deleteOldOutputSchema, err := jsonschema.For[apptype.SweepResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for SweepResult: %v", err))
	}
	healthInputSchema, err := jsonschema.For[apptype.HealthArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthArgs: %v", err))
	}
	healthOutputSchema, err := jsonschema.For[apptype.HealthResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthResult: %v", err))
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "store_pattern",
		Title:       "Store Pattern",
		Description: "Store a reusable pattern; entities are extracted and linked automatically.",
		InputSchema: storePatternInputSchema,
	}, s.handleStorePattern)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "query_patterns",
		Title:        "Query Patterns",
		Description:  "Find patterns by text relevance, filtered by agent/category/tags and privacy scope.",
		InputSchema:  queryPatternsInputSchema,
		OutputSchema: queryPatternsOutputSchema,
	}, s.handleQueryPatterns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "open_node",
		Title:        "Open Node",
		Description:  "Retrieve a single node by id.",
		InputSchema:  openNodeInputSchema,
		OutputSchema: openNodeOutputSchema,
	}, s.handleOpenNode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_edge",
		Title:       "Create Edge",
		Description: "Create a directed weighted edge between two existing nodes.",
		InputSchema: createEdgeInputSchema,
	}, s.handleCreateEdge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "neighbors",
		Title:        "Neighbors",
		Description:  "Fetch the direct out-neighbors of a node.",
		InputSchema:  neighborsInputSchema,
		OutputSchema: neighborsOutputSchema,
	}, s.handleNeighbors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "walk",
		Title:        "Graph Walk",
		Description:  "Bounded-depth breadth-first walk from a start node.",
		InputSchema:  walkInputSchema,
		OutputSchema: walkOutputSchema,
	}, s.handleWalk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "shortest_path",
		Title:        "Shortest Path",
		Description:  "Compute a shortest directed path between two nodes.",
		InputSchema:  shortestInputSchema,
		OutputSchema: shortestOutputSchema,
	}, s.handleShortestPath)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "communities",
		Title:        "Communities",
		Description:  "Group nodes into connected components, ignoring edge direction.",
		InputSchema:  communitiesInputSchema,
		OutputSchema: communitiesOutputSchema,
	}, s.handleCommunities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "increment_usage",
		Title:       "Increment Usage",
		Description: "Record one use of a pattern, refreshing its last-used timestamp.",
		InputSchema: incrementUsageInputSchema,
	}, s.handleIncrementUsage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_node",
		Title:       "Delete Node",
		Description: "Delete a node and every edge touching it.",
		InputSchema: deleteNodeInputSchema,
	}, s.handleDeleteNode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_edge",
		Title:       "Delete Edge",
		Description: "Delete an edge by id.",
		InputSchema: deleteEdgeInputSchema,
	}, s.handleDeleteEdge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "delete_old_patterns",
		Title:        "Delete Old Patterns",
		Description:  "Sweep patterns unused for more than the given number of days.",
		InputSchema:  deleteOldInputSchema,
		OutputSchema: deleteOldOutputSchema,
	}, s.handleDeleteOldPatterns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Returns server and store information.",
		InputSchema:  healthInputSchema,
		OutputSchema: healthOutputSchema,
	}, s.handleHealth)
}

// handleStorePattern handles the store_pattern tool call
func (s *MCPServer) handleStorePattern(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.StorePatternArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("store_pattern")
	var success bool
	defer func() { done(success) }()
	pattern := params.Arguments.Pattern

	if err := s.svc.StorePattern(ctx, &pattern); err != nil {
		return nil, fmt.Errorf("failed to store pattern: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Stored pattern %q", pattern.ID),
			},
		},
	}, nil
}

// handleQueryPatterns handles the query_patterns tool call
func (s *MCPServer) handleQueryPatterns(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.QueryPatternsArgs],
) (*mcp.CallToolResultFor[apptype.QueryPatternsResult], error) {
	done := metrics.TimeTool("query_patterns")
	var success bool
	defer func() { done(success) }()
	q := params.Arguments.Query

	matches, err := s.svc.QueryPatterns(&q)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.QueryPatternsResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Found %d patterns", len(matches)),
			},
		},
		StructuredContent: apptype.QueryPatternsResult{
			Matches: matches,
			Count:   len(matches),
		},
	}, nil
}

// handleOpenNode handles the open_node tool call
func (s *MCPServer) handleOpenNode(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.OpenNodeArgs],
) (*mcp.CallToolResultFor[apptype.NodeResult], error) {
	done := metrics.TimeTool("open_node")
	var success bool
	defer func() { done(success) }()

	node, err := s.svc.GetNode(params.Arguments.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	success = true

	text := "Node found"
	if node == nil {
		text = "Node not found"
	}
	return &mcp.CallToolResultFor[apptype.NodeResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: apptype.NodeResult{Node: node, Found: node != nil},
	}, nil
}

// handleCreateEdge handles the create_edge tool call
func (s *MCPServer) handleCreateEdge(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CreateEdgeArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("create_edge")
	var success bool
	defer func() { done(success) }()
	edge := params.Arguments.Edge

	if err := s.svc.AddEdge(ctx, &edge); err != nil {
		return nil, fmt.Errorf("failed to create edge: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Created edge %s -> %s (%s)", edge.Source, edge.Target, edge.Relationship)}},
	}, nil
}

// handleNeighbors handles the neighbors tool call
func (s *MCPServer) handleNeighbors(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.NeighborsArgs],
) (*mcp.CallToolResultFor[apptype.IDListResult], error) {
	done := metrics.TimeTool("neighbors")
	var success bool
	defer func() { done(success) }()

	ids, err := s.svc.Neighbors(params.Arguments.ID)
	if err != nil {
		return nil, fmt.Errorf("neighbors failed: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.IDListResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "Neighbors fetched"}},
		StructuredContent: apptype.IDListResult{IDs: ids},
	}, nil
}

func (s *MCPServer) handleWalk(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.WalkArgs],
) (*mcp.CallToolResultFor[apptype.IDListResult], error) {
	done := metrics.TimeTool("walk")
	var success bool
	defer func() { done(success) }()
	depth := params.Arguments.MaxDepth
	if depth <= 0 {
		depth = defaultWalkDepth
	}

	ids, err := s.svc.Walk(params.Arguments.StartID, depth)
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.IDListResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "Walk complete"}},
		StructuredContent: apptype.IDListResult{IDs: ids},
	}, nil
}

func (s *MCPServer) handleShortestPath(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ShortestPathArgs],
) (*mcp.CallToolResultFor[apptype.IDListResult], error) {
	done := metrics.TimeTool("shortest_path")
	var success bool
	defer func() { done(success) }()

	ids, err := s.svc.ShortestPath(params.Arguments.From, params.Arguments.To)
	if err != nil {
		return nil, fmt.Errorf("shortest_path failed: %w", err)
	}
	success = true
	text := "Shortest path found"
	if len(ids) == 0 {
		text = "No path found"
	}
	return &mcp.CallToolResultFor[apptype.IDListResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: apptype.IDListResult{IDs: ids},
	}, nil
}

// handleCommunities handles the communities tool call
func (s *MCPServer) handleCommunities(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.CommunitiesResult], error) {
	done := metrics.TimeTool("communities")
	var success bool
	defer func() { done(success) }()

	communities, err := s.svc.Communities()
	if err != nil {
		return nil, fmt.Errorf("communities failed: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.CommunitiesResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Found %d communities", len(communities))}},
		StructuredContent: apptype.CommunitiesResult{Communities: communities},
	}, nil
}

// handleIncrementUsage handles the increment_usage tool call
func (s *MCPServer) handleIncrementUsage(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.IncrementUsageArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("increment_usage")
	var success bool
	defer func() { done(success) }()

	if err := s.svc.IncrementUsage(ctx, params.Arguments.ID); err != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Recorded usage of %q", params.Arguments.ID)}},
	}, nil
}

// handleDeleteNode handles the delete_node tool call
func (s *MCPServer) handleDeleteNode(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteNodeArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("delete_node")
	var success bool
	defer func() { done(success) }()

	if err := s.svc.DeleteNode(ctx, params.Arguments.ID); err != nil {
		return nil, fmt.Errorf("failed to delete node: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Deleted node %q", params.Arguments.ID)}},
	}, nil
}

// handleDeleteEdge handles the delete_edge tool call
func (s *MCPServer) handleDeleteEdge(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteEdgeArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("delete_edge")
	var success bool
	defer func() { done(success) }()

	if err := s.svc.DeleteEdge(ctx, params.Arguments.ID); err != nil {
		return nil, fmt.Errorf("failed to delete edge: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Deleted edge %q", params.Arguments.ID)}},
	}, nil
}

// handleDeleteOldPatterns handles the delete_old_patterns tool call
func (s *MCPServer) handleDeleteOldPatterns(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteOldPatternsArgs],
) (*mcp.CallToolResultFor[apptype.SweepResult], error) {
	done := metrics.TimeTool("delete_old_patterns")
	var success bool
	defer func() { done(success) }()
	days := params.Arguments.MaxAgeDays
	if days <= 0 {
		return nil, fmt.Errorf("maxAgeDays must be positive")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	removed, err := s.svc.DeleteOldPatterns(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete old patterns: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.SweepResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Removed %d stale patterns", removed)}},
		StructuredContent: apptype.SweepResult{Removed: removed},
	}, nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()
	nodes, edges := s.svc.Counts()
	res := apptype.HealthResult{
		Name:         "graphrag-go",
		Version:      buildinfo.Version,
		Revision:     buildinfo.Revision,
		BuildDate:    buildinfo.BuildDate,
		State:        s.svc.StateString(),
		Nodes:        nodes,
		Edges:        edges,
		GraphVersion: s.svc.Version(),
	}
	return &mcp.CallToolResultFor[apptype.HealthResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "ok"}},
		StructuredContent: res,
	}, nil
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("SSE MCP server listening on %s%s", addr, endpoint)
	return srv.ListenAndServe()
}
