package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/graph"
	"github.com/patternforge/graphrag-go/internal/metrics"
	"github.com/patternforge/graphrag-go/internal/privacy"
	"github.com/patternforge/graphrag-go/internal/rank"
)

// Engine answers scoped pattern queries over the store: filter by
// agent/category/tags, drop what the caller may not see, rank by text
// relevance, boost by centrality, sort and cut. Results are cached per
// normalized query, stamped with the store version, so any mutation
// invalidates every cached entry at once.
type Engine struct {
	store    *graph.Store
	analyzer *graph.Analyzer
	cache    *resultCache

	mu                sync.Mutex
	centralityVersion uint64
	centralityFresh   bool
}

// NewEngine creates an engine over the store. cacheSize <= 0 picks the
// default.
func NewEngine(store *graph.Store, analyzer *graph.Analyzer, cacheSize int) (*Engine, error) {
	cache, err := newResultCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	return &Engine{store: store, analyzer: analyzer, cache: cache}, nil
}

// Query runs the full pipeline and returns ranked matches, never nil.
func (e *Engine) Query(q *apptype.GraphRAGQuery) ([]apptype.QueryMatch, error) {
	done := metrics.TimeOp("query_patterns")
	success := false
	defer func() { done(success) }()

	if q == nil {
		q = &apptype.GraphRAGQuery{}
	}
	if state := e.store.State(); state != graph.StateReady {
		return nil, &graph.NotInitializedError{State: state}
	}

	version := e.store.Version()
	key := cacheKey(q)
	if matches, ok := e.cache.get(key, version); ok {
		success = true
		return matches, nil
	}

	if err := e.refreshCentrality(version); err != nil {
		return nil, err
	}

	var matches []apptype.QueryMatch
	for _, node := range e.store.PatternNodes() {
		if q.Agent != "" && node.StringProp(apptype.PropAgent) != q.Agent {
			continue
		}
		if q.Category != "" && node.StringProp(apptype.PropCategory) != q.Category {
			continue
		}
		if !hasAllTags(node.TagsProp(), q.Tags) {
			continue
		}
		if !privacy.Visible(q, node.Privacy) {
			continue
		}

		score := 0.0
		if strings.TrimSpace(q.Text) != "" {
			score = rank.Relevance(q.Text, candidateText(node))
		}
		score = rank.BoostByCentrality(score, node.Centrality)
		if score < q.MinRelevance {
			continue
		}
		matches = append(matches, apptype.QueryMatch{Node: cloneNode(node), Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		ui, uj := matches[i].Node.UsageCount(), matches[j].Node.UsageCount()
		if ui != uj {
			return ui > uj
		}
		return matches[i].Node.ID < matches[j].Node.ID
	})
	// limit <= 0 means unbounded
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	if matches == nil {
		matches = []apptype.QueryMatch{}
	}

	e.cache.put(key, version, matches)
	success = true
	return matches, nil
}

// InvalidateCache drops every cached result. Version stamping already
// makes stale entries invisible; this only frees memory.
func (e *Engine) InvalidateCache() {
	e.cache.purge()
}

// refreshCentrality recomputes centrality once per store version instead
// of once per query.
func (e *Engine) refreshCentrality(version uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.centralityFresh && e.centralityVersion == version {
		return nil
	}
	if err := e.analyzer.CalculateCentrality(); err != nil {
		return err
	}
	e.centralityVersion = version
	e.centralityFresh = true
	return nil
}

// candidateText is the searchable surface of a pattern node.
func candidateText(node *apptype.GraphNode) string {
	parts := []string{
		node.StringProp(apptype.PropPattern),
		node.StringProp(apptype.PropDescription),
		node.Label,
	}
	parts = append(parts, node.TagsProp()...)
	return strings.Join(parts, " ")
}

func hasAllTags(nodeTags, queryTags []string) bool {
	if len(queryTags) == 0 {
		return true
	}
	set := make(map[string]bool, len(nodeTags))
	for _, tag := range nodeTags {
		set[strings.ToLower(tag)] = true
	}
	for _, tag := range queryTags {
		if !set[strings.ToLower(tag)] {
			return false
		}
	}
	return true
}

// cacheKey serializes the query into a canonical string: lowercased
// trimmed text, sorted lowercased tags, and every scoping knob.
func cacheKey(q *apptype.GraphRAGQuery) string {
	tags := make([]string, len(q.Tags))
	for i, tag := range q.Tags {
		tags[i] = strings.ToLower(tag)
	}
	sort.Strings(tags)

	limit := q.Limit
	if limit < 0 {
		limit = 0
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(q.Text)),
		q.Agent,
		q.Category,
		strings.Join(tags, ","),
		q.UserID,
		q.TeamID,
		q.ProjectID,
		fmt.Sprintf("%t", q.WantsPublic()),
		fmt.Sprintf("%g", q.MinRelevance),
		fmt.Sprintf("%d", limit),
	}, "|")
}

func cloneNode(node *apptype.GraphNode) *apptype.GraphNode {
	clone := *node
	if node.Properties != nil {
		clone.Properties = make(map[string]any, len(node.Properties))
		for k, v := range node.Properties {
			clone.Properties[k] = v
		}
	}
	clone.Connections = append([]string(nil), node.Connections...)
	if node.Privacy != nil {
		scope := *node.Privacy
		clone.Privacy = &scope
	}
	return &clone
}
