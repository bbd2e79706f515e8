// Package recommend aggregates heterogeneous recommendation signals into one
// explained candidate list. The four signals are computed independently and
// concatenated without cross-signal deduplication or score normalization, so
// one item may legitimately appear under several signals. Scores are only
// comparable within a signal.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/leafmark/leafmark/store"
)

// SignalType identifies one source of recommendation evidence.
type SignalType string

const (
	SignalSemantic   SignalType = "semantic"
	SignalCollection SignalType = "collection"
	SignalTag        SignalType = "tag"
	SignalSeries     SignalType = "series"
)

// Result is one recommended candidate. Results are transient and never
// persisted.
type Result struct {
	Signal SignalType `json:"signal_type"`
	ItemID uuid.UUID  `json:"candidate_item_id"`
	Score  float64    `json:"score"`
	Reason string     `json:"reason"`
}

// Config controls aggregation.
type Config struct {
	// LimitPerSignal caps each signal's candidate list.
	LimitPerSignal int
	// HighProgress marks an item as engaged (percent).
	HighProgress float64
	// LowProgress marks a candidate as not meaningfully started (percent).
	LowProgress float64
}

// DefaultConfig returns the standard aggregation configuration.
func DefaultConfig() Config {
	return Config{
		LimitPerSignal: 5,
		HighProgress:   50,
		LowProgress:    10,
	}
}

// Recommender computes recommendations for an owner.
type Recommender struct {
	store  *store.Store
	config Config
}

// NewRecommender creates a Recommender with the default configuration.
func NewRecommender(s *store.Store) *Recommender {
	return &Recommender{store: s, config: DefaultConfig()}
}

// NewRecommenderWithConfig creates a Recommender with custom config.
func NewRecommenderWithConfig(s *store.Store, config Config) *Recommender {
	return &Recommender{store: s, config: config}
}

// Recommend concatenates all four signals for one owner. A failing signal is
// logged and skipped; the remaining signals still return. An owner with no
// engaged items simply gets an empty list.
func (r *Recommender) Recommend(ctx context.Context, ownerID uuid.UUID) ([]*Result, error) {
	items, err := r.store.ListItems(ctx, &store.FindItem{OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	itemByID := make(map[uuid.UUID]*store.Item, len(items))
	var engaged []*store.Item
	for _, item := range items {
		itemByID[item.ID] = item
		if item.Progress > r.config.HighProgress {
			engaged = append(engaged, item)
		}
	}

	results := []*Result{}
	signals := []struct {
		name    SignalType
		compute func(context.Context, uuid.UUID, []*store.Item, map[uuid.UUID]*store.Item) ([]*Result, error)
	}{
		{SignalSemantic, r.semanticSignal},
		{SignalCollection, r.collectionSignal},
		{SignalTag, r.tagSignal},
		{SignalSeries, r.seriesSignal},
	}
	for _, signal := range signals {
		candidates, err := signal.compute(ctx, ownerID, engaged, itemByID)
		if err != nil {
			slog.Warn("recommendation signal failed",
				slog.String("signal", string(signal.name)),
				slog.String("owner", ownerID.String()),
				slog.String("error", err.Error()))
			continue
		}
		results = append(results, candidates...)
	}

	return results, nil
}

// semanticSignal surfaces graph neighbors of the owner's engaged items,
// scored by stored edge strength.
func (r *Recommender) semanticSignal(ctx context.Context, ownerID uuid.UUID, engaged []*store.Item, itemByID map[uuid.UUID]*store.Item) ([]*Result, error) {
	var results []*Result
	seen := map[uuid.UUID]bool{}

	for _, source := range engaged {
		edges, err := r.store.ListItemRelations(ctx, &store.FindItemRelation{SourceItemID: &source.ID})
		if err != nil {
			return nil, fmt.Errorf("list relations for %s: %w", source.ID, err)
		}
		for _, edge := range edges {
			if seen[edge.RelatedItemID] {
				continue
			}
			seen[edge.RelatedItemID] = true
			results = append(results, &Result{
				Signal: SignalSemantic,
				ItemID: edge.RelatedItemID,
				Score:  edge.Strength,
				Reason: fmt.Sprintf("%s with %q", edge.Label, source.Title),
			})
		}
	}

	return topN(results, r.config.LimitPerSignal), nil
}

// collectionSignal surfaces unstarted items that share collections with the
// owner's engaged items, scored by the number of shared collections.
func (r *Recommender) collectionSignal(ctx context.Context, ownerID uuid.UUID, engaged []*store.Item, itemByID map[uuid.UUID]*store.Item) ([]*Result, error) {
	if len(engaged) == 0 {
		return nil, nil
	}

	collections, err := r.store.ListCollections(ctx, &store.FindCollection{OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	collectionNameByID := make(map[uuid.UUID]string, len(collections))
	for _, collection := range collections {
		collectionNameByID[collection.ID] = collection.Name
	}

	memberships, err := r.store.ListCollectionItems(ctx, &store.FindCollectionItem{OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("list collection items: %w", err)
	}
	itemsByCollection := map[uuid.UUID][]uuid.UUID{}
	for _, membership := range memberships {
		itemsByCollection[membership.CollectionID] = append(itemsByCollection[membership.CollectionID], membership.ItemID)
	}

	engagedSet := map[uuid.UUID]bool{}
	for _, item := range engaged {
		engagedSet[item.ID] = true
	}

	sharedCollections := map[uuid.UUID][]string{}
	for collectionID, members := range itemsByCollection {
		hasEngaged := false
		for _, itemID := range members {
			if engagedSet[itemID] {
				hasEngaged = true
				break
			}
		}
		if !hasEngaged {
			continue
		}
		for _, itemID := range members {
			if engagedSet[itemID] {
				continue
			}
			candidate, ok := itemByID[itemID]
			if !ok || candidate.Progress > r.config.LowProgress {
				continue
			}
			sharedCollections[itemID] = append(sharedCollections[itemID], collectionNameByID[collectionID])
		}
	}

	var results []*Result
	for itemID, names := range sharedCollections {
		sort.Strings(names)
		results = append(results, &Result{
			Signal: SignalCollection,
			ItemID: itemID,
			Score:  float64(len(names)),
			Reason: fmt.Sprintf("In shared collections: %s", strings.Join(names, ", ")),
		})
	}

	return topN(results, r.config.LimitPerSignal), nil
}

// tagSignal surfaces items sharing tags with the owner's engaged items,
// scored by the number of shared tags.
func (r *Recommender) tagSignal(ctx context.Context, ownerID uuid.UUID, engaged []*store.Item, itemByID map[uuid.UUID]*store.Item) ([]*Result, error) {
	if len(engaged) == 0 {
		return nil, nil
	}

	tags, err := r.store.ListItemTags(ctx, &store.FindItemTag{OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("list item tags: %w", err)
	}

	engagedSet := map[uuid.UUID]bool{}
	for _, item := range engaged {
		engagedSet[item.ID] = true
	}

	engagedTags := map[string]bool{}
	for _, tag := range tags {
		if engagedSet[tag.ItemID] {
			engagedTags[tag.Tag] = true
		}
	}

	sharedTags := map[uuid.UUID][]string{}
	for _, tag := range tags {
		if engagedSet[tag.ItemID] || !engagedTags[tag.Tag] {
			continue
		}
		sharedTags[tag.ItemID] = append(sharedTags[tag.ItemID], tag.Tag)
	}

	var results []*Result
	for itemID, names := range sharedTags {
		sort.Strings(names)
		results = append(results, &Result{
			Signal: SignalTag,
			ItemID: itemID,
			Score:  float64(len(names)),
			Reason: fmt.Sprintf("Shares tags: %s", strings.Join(names, ", ")),
		})
	}

	return topN(results, r.config.LimitPerSignal), nil
}

// seriesSignal surfaces the next unread entry of every series the owner has
// started but not finished. The immediate next entry after the furthest
// started one scores 1.0; an earlier skipped entry scores 0.7.
func (r *Recommender) seriesSignal(ctx context.Context, ownerID uuid.UUID, engaged []*store.Item, itemByID map[uuid.UUID]*store.Item) ([]*Result, error) {
	seriesList, err := r.store.ListSeries(ctx, &store.FindSeries{OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	var results []*Result
	for _, series := range seriesList {
		entries, err := r.store.ListItems(ctx, &store.FindItem{OwnerID: &ownerID, SeriesID: &series.ID})
		if err != nil {
			return nil, fmt.Errorf("list series entries for %s: %w", series.ID, err)
		}

		ordered := make([]*store.Item, 0, len(entries))
		for _, entry := range entries {
			if entry.SeriesOrder != nil {
				ordered = append(ordered, entry)
			}
		}
		sort.Slice(ordered, func(i, j int) bool {
			return *ordered[i].SeriesOrder < *ordered[j].SeriesOrder
		})

		var furthestStarted *int32
		var nextUnread *store.Item
		for _, entry := range ordered {
			if entry.Progress > 0 {
				furthestStarted = entry.SeriesOrder
			} else if nextUnread == nil {
				nextUnread = entry
			}
		}

		// A series never started or fully read yields nothing.
		if furthestStarted == nil || nextUnread == nil {
			continue
		}

		score := 0.7
		if *nextUnread.SeriesOrder == *furthestStarted+1 {
			score = 1.0
		}
		results = append(results, &Result{
			Signal: SignalSeries,
			ItemID: nextUnread.ID,
			Score:  score,
			Reason: fmt.Sprintf("Next in series %q (entry %d)", series.Name, *nextUnread.SeriesOrder),
		})
	}

	return topN(results, r.config.LimitPerSignal), nil
}

// topN sorts by score descending and truncates. Ties keep insertion order.
func topN(results []*Result, n int) []*Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > n {
		results = results[:n]
	}
	return results
}
