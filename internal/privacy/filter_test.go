package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patternforge/graphrag-go/internal/apptype"
)

func boolPtr(b bool) *bool { return &b }

func TestVisiblePublic(t *testing.T) {
	q := &apptype.GraphRAGQuery{UserID: "u1"}

	assert.True(t, Visible(q, nil))
	assert.True(t, Visible(q, &apptype.PrivacyScope{IsPublic: true}))
	assert.True(t, Visible(q, &apptype.PrivacyScope{}))

	// explicit opt-out hides public nodes
	q.IncludePublic = boolPtr(false)
	assert.False(t, Visible(q, nil))
	assert.False(t, Visible(q, &apptype.PrivacyScope{IsPublic: true}))

	// but includePublic=true is the same as omitted
	q.IncludePublic = boolPtr(true)
	assert.True(t, Visible(q, nil))
}

func TestVisibleUserScope(t *testing.T) {
	scope := &apptype.PrivacyScope{UserID: "u1"}

	assert.True(t, Visible(&apptype.GraphRAGQuery{UserID: "u1"}, scope))
	assert.False(t, Visible(&apptype.GraphRAGQuery{UserID: "u2"}, scope))
	assert.False(t, Visible(&apptype.GraphRAGQuery{}, scope))
	// matching team or project does not unlock a user-scoped node
	assert.False(t, Visible(&apptype.GraphRAGQuery{TeamID: "t1", ProjectID: "p1"}, scope))
}

func TestVisibleTeamScope(t *testing.T) {
	scope := &apptype.PrivacyScope{TeamID: "t1"}

	assert.True(t, Visible(&apptype.GraphRAGQuery{TeamID: "t1"}, scope))
	assert.False(t, Visible(&apptype.GraphRAGQuery{TeamID: "t2"}, scope))
	assert.False(t, Visible(&apptype.GraphRAGQuery{UserID: "u1"}, scope))
}

func TestVisibleProjectScope(t *testing.T) {
	scope := &apptype.PrivacyScope{ProjectID: "p1"}

	assert.True(t, Visible(&apptype.GraphRAGQuery{ProjectID: "p1"}, scope))
	assert.False(t, Visible(&apptype.GraphRAGQuery{ProjectID: "p2"}, scope))
	assert.False(t, Visible(&apptype.GraphRAGQuery{}, scope))
}

func TestVisibleScopedNodesIgnoreIncludePublic(t *testing.T) {
	scope := &apptype.PrivacyScope{UserID: "u1"}
	q := &apptype.GraphRAGQuery{UserID: "u1", IncludePublic: boolPtr(false)}
	// opting out of public results must not hide the caller's own nodes
	assert.True(t, Visible(q, scope))
}
