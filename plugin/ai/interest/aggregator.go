// Package interest maintains per-owner interest profiles: the average of an
// owner's recent note and highlight vectors plus their most frequent tags as
// ranked concepts. Profiles power cross-owner similarity lookups.
package interest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leafmark/leafmark/store"
)

// Config controls profile recomputation.
type Config struct {
	// Lookback bounds how far back sampled items may have been created.
	Lookback time.Duration
	// TopConcepts caps the ranked concept list.
	TopConcepts int
	// SimilarityThreshold is the minimum cosine similarity for a similar
	// owner match.
	SimilarityThreshold float32
	// SimilarOwnerLimit caps FindSimilarOwners results.
	SimilarOwnerLimit int
}

// DefaultConfig returns the standard profile configuration.
func DefaultConfig() Config {
	return Config{
		Lookback:            30 * 24 * time.Hour,
		TopConcepts:         10,
		SimilarityThreshold: 0.75,
		SimilarOwnerLimit:   10,
	}
}

// Aggregator recomputes interest profiles and answers similarity queries.
type Aggregator struct {
	store  *store.Store
	config Config
}

// NewAggregator creates an Aggregator with the default configuration.
func NewAggregator(s *store.Store) *Aggregator {
	return &Aggregator{store: s, config: DefaultConfig()}
}

// NewAggregatorWithConfig creates an Aggregator with custom config.
func NewAggregatorWithConfig(s *store.Store, config Config) *Aggregator {
	return &Aggregator{store: s, config: config}
}

// Recompute rebuilds one owner's profile from their recent notes and
// highlights and overwrites any prior profile wholesale. An owner with no
// recent embedded items yields a nil profile and no error.
func (a *Aggregator) Recompute(ctx context.Context, ownerID uuid.UUID) (*store.InterestProfile, error) {
	createdAfter := time.Now().Add(-a.config.Lookback).Unix()
	embeddings, err := a.store.ListItemEmbeddings(ctx, &store.FindItemEmbedding{
		OwnerID:      &ownerID,
		ItemTypes:    []store.ItemType{store.ItemTypeNote, store.ItemTypeHighlight},
		CreatedAfter: &createdAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("list item embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		slog.Debug("no recent embedded items, skipping profile", slog.String("owner", ownerID.String()))
		return nil, nil
	}

	aggregate := averageVectors(embeddings)
	concepts, err := a.topConcepts(ctx, ownerID, embeddings)
	if err != nil {
		return nil, err
	}

	return a.store.UpsertInterestProfile(ctx, &store.InterestProfile{
		OwnerID:     ownerID,
		Embedding:   aggregate,
		Concepts:    concepts,
		SampleCount: int32(len(embeddings)),
		ComputedTs:  time.Now().Unix(),
	})
}

// FindSimilarOwners returns owners whose aggregate vector is close to this
// owner's. An owner without a profile gets an empty result, not an error.
func (a *Aggregator) FindSimilarOwners(ctx context.Context, ownerID uuid.UUID) ([]*store.OwnerWithScore, error) {
	profile, err := a.store.GetInterestProfile(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get interest profile: %w", err)
	}
	if profile == nil {
		return []*store.OwnerWithScore{}, nil
	}

	return a.store.SearchInterestProfiles(ctx, &store.ProfileSearchOptions{
		OwnerID:   ownerID,
		Vector:    profile.Embedding,
		Threshold: a.config.SimilarityThreshold,
		Limit:     a.config.SimilarOwnerLimit,
	})
}

// topConcepts ranks the tags of the sampled items by how many sampled items
// carry them.
func (a *Aggregator) topConcepts(ctx context.Context, ownerID uuid.UUID, embeddings []*store.ItemEmbedding) ([]*store.Concept, error) {
	tags, err := a.store.ListItemTags(ctx, &store.FindItemTag{OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("list item tags: %w", err)
	}

	sampled := make(map[uuid.UUID]bool, len(embeddings))
	for _, embedding := range embeddings {
		sampled[embedding.ItemID] = true
	}

	frequency := map[string]int32{}
	for _, tag := range tags {
		if sampled[tag.ItemID] {
			frequency[tag.Tag]++
		}
	}

	concepts := make([]*store.Concept, 0, len(frequency))
	sampleCount := float64(len(embeddings))
	for term, count := range frequency {
		concepts = append(concepts, &store.Concept{
			Term:       term,
			Frequency:  count,
			Importance: float64(count) / sampleCount,
		})
	}
	sort.Slice(concepts, func(i, j int) bool {
		if concepts[i].Frequency != concepts[j].Frequency {
			return concepts[i].Frequency > concepts[j].Frequency
		}
		return concepts[i].Term < concepts[j].Term
	})
	if len(concepts) > a.config.TopConcepts {
		concepts = concepts[:a.config.TopConcepts]
	}
	return concepts, nil
}

// averageVectors computes the element-wise mean of all embedding vectors.
// Vectors shorter than the first one are ignored beyond their length.
func averageVectors(embeddings []*store.ItemEmbedding) []float32 {
	dims := len(embeddings[0].Embedding)
	sum := make([]float64, dims)
	for _, embedding := range embeddings {
		for i, v := range embedding.Embedding {
			if i >= dims {
				break
			}
			sum[i] += float64(v)
		}
	}
	avg := make([]float32, dims)
	for i := range sum {
		avg[i] = float32(sum[i] / float64(len(embeddings)))
	}
	return avg
}
