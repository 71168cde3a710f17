package index

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/extract"
	"github.com/patternforge/graphrag-go/internal/graph"
	"github.com/patternforge/graphrag-go/internal/metrics"
	"github.com/patternforge/graphrag-go/internal/pubsub"
)

const mentionsWeight = 1.0

// Indexer turns a Pattern into a pattern node, entity nodes and mentions
// edges. Entity node ids are derived from the entity name, so re-indexing
// the same pattern text is idempotent: same text, same nodes, same edges.
type Indexer struct {
	store     *graph.Store
	extractor extract.Extractor
	broker    *pubsub.Broker
}

// NewIndexer creates an indexer. The broker may be nil if nobody listens.
func NewIndexer(store *graph.Store, extractor extract.Extractor, broker *pubsub.Broker) *Indexer {
	return &Indexer{store: store, extractor: extractor, broker: broker}
}

// EntityID returns the stable node id for an entity name.
func EntityID(name string) string {
	return "entity:" + slug(name)
}

// slug lowercases and collapses non-alphanumeric runs to single dashes.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func mentionsEdgeID(patternID, entityID string) string {
	return "mentions:" + patternID + ":" + entityID
}

// StorePattern upserts the pattern node, extracts entities from the
// pattern text and description, ensures the entity nodes exist and links
// them with mentions edges. The usage counter and last-used timestamp of
// an already-indexed pattern are preserved; a fresh pattern starts at zero
// usage with last-used set to now.
//
// Persistence failures surface as a ConnectionError after the whole
// in-memory update has been applied (write-behind, same as the store's
// single mutations). Validation failures abort immediately.
func (ix *Indexer) StorePattern(ctx context.Context, pattern *apptype.Pattern) error {
	done := metrics.TimeOp("store_pattern")
	success := false
	defer func() { done(success) }()

	if pattern == nil {
		return &graph.ValidationError{Field: "pattern", Reason: "pattern is nil"}
	}
	if strings.TrimSpace(pattern.Pattern) == "" {
		return &graph.ValidationError{Field: "pattern", Reason: "pattern text is required"}
	}

	node := pattern.Node()
	if node.ID == "" {
		node.ID = "pattern:" + uuid.NewString()
	}

	existing, err := ix.store.GetNode(node.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Re-indexing must not touch usage bookkeeping: usageCount only
		// changes via IncrementUsage.
		if v, ok := existing.Properties[apptype.PropUsageCount]; ok {
			node.Properties[apptype.PropUsageCount] = v
		}
		if v, ok := existing.Properties[apptype.PropLastUsed]; ok {
			node.Properties[apptype.PropLastUsed] = v
		}
	}
	if _, ok := node.Properties[apptype.PropUsageCount]; !ok {
		node.Properties[apptype.PropUsageCount] = 0
	}
	if _, ok := node.Properties[apptype.PropLastUsed]; !ok {
		node.Properties[apptype.PropLastUsed] = time.Now().UTC().Format(time.RFC3339)
	}

	var firstPersistErr error
	if err := ix.store.AddNode(ctx, node); err != nil {
		if !isConnectionError(err) {
			return err
		}
		firstPersistErr = err
	}

	entities := ix.extractor.Extract(pattern.Pattern + " " + pattern.Description)
	for _, name := range entities {
		entityID := EntityID(name)
		entityNode, err := ix.store.GetNode(entityID)
		if err != nil {
			return err
		}
		if entityNode == nil {
			entityNode = &apptype.GraphNode{
				ID:    entityID,
				Type:  apptype.NodeTypeEntity,
				Label: name,
			}
			if err := ix.store.AddNode(ctx, entityNode); err != nil {
				if !isConnectionError(err) {
					return err
				}
				if firstPersistErr == nil {
					firstPersistErr = err
				}
			}
		}
		edge := &apptype.GraphEdge{
			ID:           mentionsEdgeID(node.ID, entityID),
			Source:       node.ID,
			Target:       entityID,
			Relationship: apptype.EdgeMentions,
			Weight:       mentionsWeight,
		}
		if err := ix.store.AddEdge(ctx, edge); err != nil {
			if !isConnectionError(err) {
				return err
			}
			if firstPersistErr == nil {
				firstPersistErr = err
			}
		}
	}

	if ix.broker != nil {
		ix.broker.Publish(pubsub.Event{Type: pubsub.EventPatternStored, Node: node})
	}
	if firstPersistErr != nil {
		return firstPersistErr
	}
	success = true
	return nil
}

func isConnectionError(err error) bool {
	var connErr *graph.ConnectionError
	return errors.As(err, &connErr)
}
