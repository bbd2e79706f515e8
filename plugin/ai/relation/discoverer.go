// Package relation discovers and maintains the similarity graph between a
// user's items. Edges are symmetric: every discovered pair is stored in both
// directions with the same label and strength.
package relation

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/leafmark/leafmark/store"
)

// Config controls neighbor discovery.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity (0-1) for an
	// edge to be created.
	SimilarityThreshold float32
	// NeighborLimit caps how many nearest neighbors are examined per item.
	NeighborLimit int
}

// DefaultConfig returns the standard discovery configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.60,
		NeighborLimit:       10,
	}
}

// Discoverer finds related items for freshly embedded content.
type Discoverer struct {
	store  *store.Store
	config Config
}

// NewDiscoverer creates a Discoverer with the default configuration.
func NewDiscoverer(s *store.Store) *Discoverer {
	return &Discoverer{store: s, config: DefaultConfig()}
}

// NewDiscovererWithConfig creates a Discoverer with custom config.
func NewDiscovererWithConfig(s *store.Store, config Config) *Discoverer {
	return &Discoverer{store: s, config: config}
}

// Discover runs nearest-neighbor search for one item and upserts an edge
// pair for every neighbor above the similarity threshold. It returns the
// number of edges written, two per neighbor since edges are stored in both
// directions. An item without a stored vector yields zero edges and no
// error.
func (d *Discoverer) Discover(ctx context.Context, ownerID, itemID uuid.UUID) (int, error) {
	embedding, err := d.store.GetItemEmbedding(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("get item embedding: %w", err)
	}
	if embedding == nil {
		slog.Debug("skipping relation discovery, no vector", slog.String("item", itemID.String()))
		return 0, nil
	}

	neighbors, err := d.store.VectorSearch(ctx, &store.VectorSearchOptions{
		OwnerID:       ownerID,
		Vector:        embedding.Embedding,
		Limit:         d.config.NeighborLimit,
		ExcludeItemID: &itemID,
		MinScore:      d.config.SimilarityThreshold,
	})
	if err != nil {
		return 0, fmt.Errorf("vector search: %w", err)
	}

	count := 0
	for _, neighbor := range neighbors {
		strength := roundStrength(neighbor.Score)
		label := store.ClassifyStrength(strength)

		if err := d.upsertEdgePair(ctx, ownerID, itemID, neighbor.ItemID, label, strength); err != nil {
			return count, err
		}
		count += 2
	}

	return count, nil
}

// Backfill rediscovers relations for every embedded item of an owner. Used
// after bulk imports or threshold changes. Returns the number of items
// processed.
func (d *Discoverer) Backfill(ctx context.Context, ownerID uuid.UUID) (int, error) {
	embeddings, err := d.store.ListItemEmbeddings(ctx, &store.FindItemEmbedding{OwnerID: &ownerID})
	if err != nil {
		return 0, fmt.Errorf("list item embeddings: %w", err)
	}

	processed := 0
	for _, embedding := range embeddings {
		if _, err := d.Discover(ctx, ownerID, embedding.ItemID); err != nil {
			slog.Warn("backfill discovery failed",
				slog.String("item", embedding.ItemID.String()),
				slog.String("error", err.Error()))
			continue
		}
		processed++
	}

	return processed, nil
}

func (d *Discoverer) upsertEdgePair(ctx context.Context, ownerID, sourceID, relatedID uuid.UUID, label store.RelationLabel, strength float64) error {
	forward := &store.ItemRelation{
		OwnerID:       ownerID,
		SourceItemID:  sourceID,
		RelatedItemID: relatedID,
		Label:         label,
		Strength:      strength,
		Status:        store.RelationStatusCompleted,
	}
	if _, err := d.store.UpsertItemRelation(ctx, forward); err != nil {
		return fmt.Errorf("upsert relation %s -> %s: %w", sourceID, relatedID, err)
	}

	reverse := &store.ItemRelation{
		OwnerID:       ownerID,
		SourceItemID:  relatedID,
		RelatedItemID: sourceID,
		Label:         label,
		Strength:      strength,
		Status:        store.RelationStatusCompleted,
	}
	if _, err := d.store.UpsertItemRelation(ctx, reverse); err != nil {
		return fmt.Errorf("upsert relation %s -> %s: %w", relatedID, sourceID, err)
	}

	return nil
}

// roundStrength converts a 0-1 similarity to a 0-100 strength with two
// decimal places.
func roundStrength(score float32) float64 {
	return math.Round(float64(score)*100*100) / 100
}
