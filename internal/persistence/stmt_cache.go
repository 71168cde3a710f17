package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/patternforge/graphrag-go/internal/metrics"
)

// getPreparedStmt returns or prepares and caches a statement for the backend DB
func (a *LibSQLAdapter) getPreparedStmt(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	// fast path read
	a.stmtMu.RLock()
	if stmt, ok := a.stmtCache[sqlText]; ok {
		a.stmtMu.RUnlock()
		metrics.Default().IncCacheHit("prepare")
		return stmt, nil
	}
	a.stmtMu.RUnlock()
	metrics.Default().IncCacheMiss("prepare")

	// prepare and store
	stmt, err := a.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	a.stmtMu.Lock()
	a.stmtCache[sqlText] = stmt
	a.stmtMu.Unlock()
	return stmt, nil
}
