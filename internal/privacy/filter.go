package privacy

import "github.com/patternforge/graphrag-go/internal/apptype"

// Visible reports whether a node with the given privacy scope may be
// returned for the given query. A nil scope means the node is public.
//
// Public nodes are visible unless the query opts out of public results.
// User-scoped nodes are visible only to their owner, team-scoped nodes
// only to queries carrying the same team id, project-scoped nodes only to
// queries carrying the same project id.
func Visible(query *apptype.GraphRAGQuery, scope *apptype.PrivacyScope) bool {
	if scope == nil || scope.IsPublic {
		return query.WantsPublic()
	}
	if scope.UserID != "" {
		return query.UserID == scope.UserID
	}
	if scope.TeamID != "" {
		return query.TeamID == scope.TeamID
	}
	if scope.ProjectID != "" {
		return query.ProjectID == scope.ProjectID
	}
	// Scope with no identity and not public: treat as public.
	return query.WantsPublic()
}
