package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/metrics"
)

const (
	upsertNodeSQL = `INSERT INTO nodes (id, node_type, label, properties, centrality, privacy)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            node_type = excluded.node_type,
            label = excluded.label,
            properties = excluded.properties,
            centrality = excluded.centrality,
            privacy = excluded.privacy,
            updated_at = CURRENT_TIMESTAMP`

	upsertEdgeSQL = `INSERT INTO edges (id, source, target, relationship, weight)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            source = excluded.source,
            target = excluded.target,
            relationship = excluded.relationship,
            weight = excluded.weight`
)

// LibSQLAdapter persists the graph in a libSQL database, local file or
// remote. It implements Adapter.
type LibSQLAdapter struct {
	db        *sql.DB
	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt
}

// NewLibSQL opens (or creates) the backing database and initializes the schema.
func NewLibSQL(config *Config) (*LibSQLAdapter, error) {
	var db *sql.DB
	var err error

	if strings.HasPrefix(config.URL, "file:") {
		db, err = sql.Open("libsql", config.URL)
	} else {
		authURL := config.URL
		if config.AuthToken != "" {
			// Build URL safely and append/override the authToken parameter
			if u, perr := url.Parse(config.URL); perr == nil {
				q := u.Query()
				q.Set("authToken", config.AuthToken)
				u.RawQuery = q.Encode()
				authURL = u.String()
			} else if strings.Contains(config.URL, "?") {
				authURL = config.URL + "&authToken=" + url.QueryEscape(config.AuthToken)
			} else {
				authURL = config.URL + "?authToken=" + url.QueryEscape(config.AuthToken)
			}
		}
		db, err = sql.Open("libsql", authURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector: %w", err)
	}

	a := &LibSQLAdapter{
		db:        db,
		stmtCache: make(map[string]*sql.Stmt),
	}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Apply connection pool tuning from config
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxIdleSec > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.ConnMaxIdleSec) * time.Second)
	}
	if config.ConnMaxLifeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifeSec) * time.Second)
	}

	return a, nil
}

// initialize creates tables and indexes if they don't exist
func (a *LibSQLAdapter) initialize() error {
	done := metrics.TimeOp("db_initialize")
	success := false
	defer func() { done(success) }()

	tx, err := a.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range schema() {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// LoadNodes returns every persisted node.
func (a *LibSQLAdapter) LoadNodes(ctx context.Context) ([]apptype.GraphNode, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT id, node_type, label, properties, centrality, privacy FROM nodes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []apptype.GraphNode
	for rows.Next() {
		var id, nodeType, label string
		var propsJSON, privacyJSON sql.NullString
		var centrality float64
		if err := rows.Scan(&id, &nodeType, &label, &propsJSON, &centrality, &privacyJSON); err != nil {
			log.Printf("Warning: Failed to scan node row: %v", err)
			continue
		}
		node := apptype.GraphNode{
			ID:         id,
			Type:       nodeType,
			Label:      label,
			Centrality: centrality,
		}
		if propsJSON.Valid && propsJSON.String != "" {
			if err := json.Unmarshal([]byte(propsJSON.String), &node.Properties); err != nil {
				log.Printf("Warning: Failed to decode properties for node %q: %v", id, err)
				continue
			}
		}
		if privacyJSON.Valid && privacyJSON.String != "" {
			if err := json.Unmarshal([]byte(privacyJSON.String), &node.Privacy); err != nil {
				log.Printf("Warning: Failed to decode privacy scope for node %q: %v", id, err)
				continue
			}
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node rows: %w", err)
	}
	return nodes, nil
}

// LoadEdges returns every persisted edge.
func (a *LibSQLAdapter) LoadEdges(ctx context.Context) ([]apptype.GraphEdge, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT id, source, target, relationship, weight FROM edges ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []apptype.GraphEdge
	for rows.Next() {
		var edge apptype.GraphEdge
		if err := rows.Scan(&edge.ID, &edge.Source, &edge.Target, &edge.Relationship, &edge.Weight); err != nil {
			log.Printf("Warning: Failed to scan edge row: %v", err)
			continue
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edge rows: %w", err)
	}
	return edges, nil
}

// PersistNode inserts or replaces a node.
func (a *LibSQLAdapter) PersistNode(ctx context.Context, node *apptype.GraphNode) error {
	done := metrics.TimeOp("db_persist_node")
	success := false
	defer func() { done(success) }()

	propsJSON, privacyJSON, err := encodeNode(node)
	if err != nil {
		return err
	}
	stmt, err := a.getPreparedStmt(ctx, upsertNodeSQL)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, node.ID, node.Type, node.Label, propsJSON, node.Centrality, privacyJSON); err != nil {
		return fmt.Errorf("failed to persist node %q: %w", node.ID, err)
	}
	success = true
	return nil
}

// PersistEdge inserts or replaces an edge.
func (a *LibSQLAdapter) PersistEdge(ctx context.Context, edge *apptype.GraphEdge) error {
	done := metrics.TimeOp("db_persist_edge")
	success := false
	defer func() { done(success) }()

	stmt, err := a.getPreparedStmt(ctx, upsertEdgeSQL)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, edge.ID, edge.Source, edge.Target, edge.Relationship, edge.Weight); err != nil {
		return fmt.Errorf("failed to persist edge %q: %w", edge.ID, err)
	}
	success = true
	return nil
}

// DeleteNode removes a node row. Edge rows are deleted by the store through
// DeleteEdge as part of its cascade, but stray references are cleaned up
// here as well so the tables never disagree.
func (a *LibSQLAdapter) DeleteNode(ctx context.Context, id string) error {
	done := metrics.TimeOp("db_delete_node")
	success := false
	defer func() { done(success) }()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE source = ? OR target = ?", id, id); err != nil {
		return fmt.Errorf("failed to delete edges for node %q: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete node %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// DeleteEdge removes an edge row.
func (a *LibSQLAdapter) DeleteEdge(ctx context.Context, id string) error {
	done := metrics.TimeOp("db_delete_edge")
	success := false
	defer func() { done(success) }()

	if _, err := a.db.ExecContext(ctx, "DELETE FROM edges WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete edge %q: %w", id, err)
	}
	success = true
	return nil
}

// BatchPersistNodes inserts or replaces many nodes in a single transaction.
func (a *LibSQLAdapter) BatchPersistNodes(ctx context.Context, nodes []*apptype.GraphNode) error {
	done := metrics.TimeOp("db_batch_persist_nodes")
	success := false
	defer func() { done(success) }()

	if len(nodes) == 0 {
		success = true
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertNodeSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare batch statement: %w", err)
	}
	defer stmt.Close()

	for _, node := range nodes {
		propsJSON, privacyJSON, err := encodeNode(node)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, node.ID, node.Type, node.Label, propsJSON, node.Centrality, privacyJSON); err != nil {
			return fmt.Errorf("failed to persist node %q in batch: %w", node.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// Close closes cached statements and the database connection.
func (a *LibSQLAdapter) Close() error {
	a.stmtMu.Lock()
	for _, stmt := range a.stmtCache {
		_ = stmt.Close()
	}
	a.stmtCache = make(map[string]*sql.Stmt)
	a.stmtMu.Unlock()
	return a.db.Close()
}

// encodeNode serializes the open-map fields of a node for storage.
// Connections are not persisted: adjacency is rebuilt from the edge set on
// load, never stored as a second source of truth.
func encodeNode(node *apptype.GraphNode) (props, privacy sql.NullString, err error) {
	if len(node.Properties) > 0 {
		b, jerr := json.Marshal(node.Properties)
		if jerr != nil {
			return props, privacy, fmt.Errorf("failed to encode properties for node %q: %w", node.ID, jerr)
		}
		props = sql.NullString{String: string(b), Valid: true}
	}
	if node.Privacy != nil {
		b, jerr := json.Marshal(node.Privacy)
		if jerr != nil {
			return props, privacy, fmt.Errorf("failed to encode privacy scope for node %q: %w", node.ID, jerr)
		}
		privacy = sql.NullString{String: string(b), Valid: true}
	}
	return props, privacy, nil
}
