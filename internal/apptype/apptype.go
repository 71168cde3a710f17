package apptype

import (
	"fmt"
	"time"
)

// Node types known to the store. Type is an open tag; these are the two
// the indexer and query engine care about.
const (
	NodeTypePattern = "pattern"
	NodeTypeEntity  = "entity"
)

// EdgeMentions links a pattern node to an entity extracted from its text.
const EdgeMentions = "mentions"

// Pattern property keys. Pattern nodes carry their payload in the open
// Properties map so they stay plain GraphNodes on the wire and in storage.
const (
	PropPattern       = "pattern"
	PropDescription   = "description"
	PropAgent         = "agent"
	PropCategory      = "category"
	PropEffectiveness = "effectiveness"
	PropTimeSaved     = "timeSaved"
	PropTags          = "tags"
	PropUsageCount    = "usageCount"
	PropLastUsed      = "lastUsed"
)

// PrivacyScope restricts which queries may see a node.
// At most one of UserID, TeamID, ProjectID may be set, or IsPublic=true.
// A node with no scope at all is treated as public.
type PrivacyScope struct {
	UserID    string `json:"userId,omitempty"`
	TeamID    string `json:"teamId,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	IsPublic  bool   `json:"isPublic,omitempty"`
}

// Validate checks the at-most-one-identity invariant.
func (p *PrivacyScope) Validate() error {
	if p == nil {
		return nil
	}
	set := 0
	if p.UserID != "" {
		set++
	}
	if p.TeamID != "" {
		set++
	}
	if p.ProjectID != "" {
		set++
	}
	if set > 1 {
		return fmt.Errorf("privacy scope must set at most one of userId, teamId, projectId")
	}
	if p.IsPublic && set > 0 {
		return fmt.Errorf("privacy scope cannot be public and identity-scoped at the same time")
	}
	return nil
}

// GraphNode represents a node in the knowledge graph.
// Connections is a denormalized copy of the node's outgoing adjacency,
// maintained by the store; Centrality is derived and written only by the
// analyzer.
type GraphNode struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Label       string         `json:"label"`
	Properties  map[string]any `json:"properties,omitempty"`
	Connections []string       `json:"connections,omitempty"`
	Centrality  float64        `json:"centrality,omitempty"`
	Privacy     *PrivacyScope  `json:"privacy,omitempty"`
}

// GraphEdge represents a directed, weighted relationship between two nodes.
type GraphEdge struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Relationship string  `json:"relationship"`
	Weight       float64 `json:"weight"`
}

// StringProp returns a string property, or "" if absent or of another type.
func (n *GraphNode) StringProp(key string) string {
	if n == nil || n.Properties == nil {
		return ""
	}
	s, _ := n.Properties[key].(string)
	return s
}

// FloatProp returns a numeric property. JSON round-trips turn every number
// into float64, so int and float are both accepted.
func (n *GraphNode) FloatProp(key string) float64 {
	if n == nil || n.Properties == nil {
		return 0
	}
	switch v := n.Properties[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// IntProp returns an integer property, tolerating JSON float64 decoding.
func (n *GraphNode) IntProp(key string) int {
	return int(n.FloatProp(key))
}

// TagsProp returns the node's tags, tolerating []any from JSON decoding.
func (n *GraphNode) TagsProp() []string {
	if n == nil || n.Properties == nil {
		return nil
	}
	switch v := n.Properties[PropTags].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

// LastUsed returns the pattern's last-used timestamp, or the zero time if
// the property is absent or unparseable.
func (n *GraphNode) LastUsed() time.Time {
	s := n.StringProp(PropLastUsed)
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// UsageCount returns the pattern's usage counter.
func (n *GraphNode) UsageCount() int {
	return n.IntProp(PropUsageCount)
}

// IsPattern reports whether the node is a pattern node.
func (n *GraphNode) IsPattern() bool {
	return n != nil && n.Type == NodeTypePattern
}

// Pattern is the caller-facing description of a reusable solution.
// StorePattern turns it into a pattern node plus entity nodes and
// mentions edges.
type Pattern struct {
	ID            string        `json:"id"`
	Pattern       string        `json:"pattern"`
	Description   string        `json:"description,omitempty"`
	Agent         string        `json:"agent,omitempty"`
	Category      string        `json:"category,omitempty"`
	Effectiveness float64       `json:"effectiveness,omitempty"`
	TimeSavedMin  int           `json:"timeSaved,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Privacy       *PrivacyScope `json:"privacy,omitempty"`
}

// Node builds the graph node representation of the pattern.
// UsageCount and LastUsed are intentionally not set here: the store owns
// the usage counter and only IncrementUsage may change it.
func (p *Pattern) Node() *GraphNode {
	props := map[string]any{
		PropPattern: p.Pattern,
	}
	if p.Description != "" {
		props[PropDescription] = p.Description
	}
	if p.Agent != "" {
		props[PropAgent] = p.Agent
	}
	if p.Category != "" {
		props[PropCategory] = p.Category
	}
	if p.Effectiveness != 0 {
		props[PropEffectiveness] = p.Effectiveness
	}
	if p.TimeSavedMin != 0 {
		props[PropTimeSaved] = p.TimeSavedMin
	}
	if len(p.Tags) > 0 {
		props[PropTags] = p.Tags
	}
	label := p.Description
	if label == "" {
		label = p.Pattern
	}
	if len(label) > 80 {
		label = label[:80]
	}
	return &GraphNode{
		ID:         p.ID,
		Type:       NodeTypePattern,
		Label:      label,
		Properties: props,
		Privacy:    p.Privacy,
	}
}

// GraphRAGQuery describes a scoped pattern lookup.
// IncludePublic defaults to true when omitted; only an explicit false
// hides public patterns.
type GraphRAGQuery struct {
	Text          string   `json:"text,omitempty"`
	Agent         string   `json:"agent,omitempty"`
	Category      string   `json:"category,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	UserID        string   `json:"userId,omitempty"`
	TeamID        string   `json:"teamId,omitempty"`
	ProjectID     string   `json:"projectId,omitempty"`
	IncludePublic *bool    `json:"includePublic,omitempty"`
	MinRelevance  float64  `json:"minRelevance,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

// WantsPublic reports whether public patterns should be visible.
func (q *GraphRAGQuery) WantsPublic() bool {
	return q.IncludePublic == nil || *q.IncludePublic
}

// QueryMatch is one ranked query result.
type QueryMatch struct {
	Node  *GraphNode `json:"node"`
	Score float64    `json:"relevanceScore"`
}
