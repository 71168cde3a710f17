package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/patternforge/graphrag-go/internal/apptype"
)

type StepResult struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type Report struct {
	SSEURL     string       `json:"sse_url"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMs int64        `json:"duration_ms"`
	Steps      []StepResult `json:"steps"`
	Passed     bool         `json:"passed"`
}

func main() {
	sseURL := flag.String("sse-url", "http://localhost:8080/sse", "SSE endpoint URL")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-tester", Version: "dev"}, nil)
	transport := mcp.NewSSEClientTransport(*sseURL, nil)

	start := time.Now()
	report := Report{SSEURL: *sseURL, StartedAt: start}
	steps := make([]StepResult, 0, 16)

	// Connect
	tConn := time.Now()
	connRes := StepResult{Name: "connect"}
	session, err := client.Connect(ctx, transport)
	if err != nil {
		connRes.Success = false
		connRes.Error = err.Error()
		connRes.ElapsedMs = elapsedMsSince(tConn)
		steps = append(steps, connRes)
		report.Steps = steps
		report.DurationMs = elapsedMsSince(start)
		report.Passed = false
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		os.Exit(1)
	}
	defer session.Close()
	connRes.Success = true
	connRes.ElapsedMs = elapsedMsSince(tConn)
	steps = append(steps, connRes)

	// Individual steps
	steps = append(steps, runListTools(ctx, session))
	steps = append(steps, runStorePattern(ctx, session, "pattern:retry", "Retry with exponential backoff", "Wrap Redis calls in a retry loop"))
	steps = append(steps, runStorePattern(ctx, session, "pattern:pool", "Connection pooling for PostgreSQL", "Reuse PostgreSQL connections"))
	steps = append(steps, runQueryPatterns(ctx, session, "retry backoff"))
	steps = append(steps, runOpenNode(ctx, session, "pattern:retry"))
	steps = append(steps, runNeighbors(ctx, session, "pattern:retry"))
	steps = append(steps, runWalk(ctx, session, "pattern:retry"))
	steps = append(steps, runShortestPath(ctx, session, "pattern:retry", "entity:redis"))
	steps = append(steps, runCommunities(ctx, session))
	steps = append(steps, runIncrementUsage(ctx, session, "pattern:retry"))
	steps = append(steps, runDeleteNode(ctx, session, "pattern:pool"))
	steps = append(steps, runHealth(ctx, session))

	// finalize report
	report.Steps = steps
	report.DurationMs = elapsedMsSince(start)
	report.Passed = true
	for _, s := range steps {
		if !s.Success {
			report.Passed = false
			break
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if !report.Passed {
		os.Exit(1)
	}
}

func callStep(ctx context.Context, session *mcp.ClientSession, name string, args any) StepResult {
	t0 := time.Now()
	res := StepResult{Name: name}
	raw, _ := json.Marshal(args)
	_, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: json.RawMessage(raw)})
	if err != nil {
		res.Success = false
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func runListTools(ctx context.Context, session *mcp.ClientSession) StepResult {
	t0 := time.Now()
	res := StepResult{Name: "list_tools"}
	if _, err := session.ListTools(ctx, &mcp.ListToolsParams{}); err != nil {
		res.Success = false
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func runStorePattern(ctx context.Context, session *mcp.ClientSession, id, text, description string) StepResult {
	args := apptype.StorePatternArgs{
		Pattern: apptype.Pattern{
			ID:          id,
			Pattern:     text,
			Description: description,
			Agent:       "tester",
			Category:    "reliability",
			Tags:        []string{"integration"},
		},
	}
	res := callStep(ctx, session, "store_pattern", args)
	res.Name = fmt.Sprintf("store_pattern[%s]", id)
	return res
}

func runQueryPatterns(ctx context.Context, session *mcp.ClientSession, text string) StepResult {
	args := apptype.QueryPatternsArgs{
		Query: apptype.GraphRAGQuery{Text: text, Limit: 5},
	}
	return callStep(ctx, session, "query_patterns", args)
}

func runOpenNode(ctx context.Context, session *mcp.ClientSession, id string) StepResult {
	return callStep(ctx, session, "open_node", apptype.OpenNodeArgs{ID: id})
}

func runNeighbors(ctx context.Context, session *mcp.ClientSession, id string) StepResult {
	return callStep(ctx, session, "neighbors", apptype.NeighborsArgs{ID: id})
}

func runWalk(ctx context.Context, session *mcp.ClientSession, id string) StepResult {
	return callStep(ctx, session, "walk", apptype.WalkArgs{StartID: id, MaxDepth: 2})
}

func runShortestPath(ctx context.Context, session *mcp.ClientSession, from, to string) StepResult {
	return callStep(ctx, session, "shortest_path", apptype.ShortestPathArgs{From: from, To: to})
}

func runCommunities(ctx context.Context, session *mcp.ClientSession) StepResult {
	return callStep(ctx, session, "communities", apptype.HealthArgs{})
}

func runIncrementUsage(ctx context.Context, session *mcp.ClientSession, id string) StepResult {
	return callStep(ctx, session, "increment_usage", apptype.IncrementUsageArgs{ID: id})
}

func runDeleteNode(ctx context.Context, session *mcp.ClientSession, id string) StepResult {
	return callStep(ctx, session, "delete_node", apptype.DeleteNodeArgs{ID: id})
}

func runHealth(ctx context.Context, session *mcp.ClientSession) StepResult {
	return callStep(ctx, session, "health_check", apptype.HealthArgs{})
}

// elapsedMsSince returns max(1ms, elapsed) to avoid zero durations on fast steps
func elapsedMsSince(t0 time.Time) int64 {
	d := time.Since(t0) / time.Millisecond
	if d <= 0 {
		return 1
	}
	return int64(d)
}
