package interest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leafmark/leafmark/store"
	storetest "github.com/leafmark/leafmark/store/test"
)

func seedEmbeddedItem(ctx context.Context, t *testing.T, ts *store.Store, ownerID uuid.UUID, itemType store.ItemType, vector []float32, tags ...string) *store.Item {
	item, err := ts.CreateItem(ctx, &store.Item{
		OwnerID: ownerID,
		Type:    itemType,
		Title:   "item",
		Content: "item",
	})
	require.NoError(t, err)
	_, err = ts.UpsertItemEmbedding(ctx, &store.ItemEmbedding{
		ItemType:  itemType,
		ItemID:    item.ID,
		OwnerID:   ownerID,
		Embedding: vector,
		Model:     "BAAI/bge-m3",
	})
	require.NoError(t, err)
	for _, tag := range tags {
		require.NoError(t, ts.UpsertItemTag(ctx, &store.ItemTag{ItemID: item.ID, Tag: tag}))
	}
	return item
}

func TestRecomputeAveragesVectors(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	a := NewAggregator(ts)
	ownerID := uuid.New()

	seedEmbeddedItem(ctx, t, ts, ownerID, store.ItemTypeNote, []float32{1, 0, 0, 0}, "go", "concurrency")
	seedEmbeddedItem(ctx, t, ts, ownerID, store.ItemTypeHighlight, []float32{0, 1, 0, 0}, "go")
	// Documents are not part of the interest sample.
	seedEmbeddedItem(ctx, t, ts, ownerID, store.ItemTypeDocument, []float32{0, 0, 1, 0}, "ignored")

	profile, err := a.Recompute(ctx, ownerID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.EqualValues(t, 2, profile.SampleCount)
	require.Equal(t, []float32{0.5, 0.5, 0, 0}, profile.Embedding)

	require.Len(t, profile.Concepts, 2)
	require.Equal(t, "go", profile.Concepts[0].Term)
	require.EqualValues(t, 2, profile.Concepts[0].Frequency)
	require.InDelta(t, 1.0, profile.Concepts[0].Importance, 0.001)
	require.Equal(t, "concurrency", profile.Concepts[1].Term)

	// The stored profile is readable back.
	stored, err := ts.GetInterestProfile(ctx, ownerID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.EqualValues(t, 2, stored.SampleCount)
}

func TestRecomputeWithoutSamples(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	a := NewAggregator(ts)

	profile, err := a.Recompute(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestRecomputeOverwritesWholesale(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	a := NewAggregator(ts)
	ownerID := uuid.New()

	_, err := ts.UpsertInterestProfile(ctx, &store.InterestProfile{
		OwnerID:     ownerID,
		Embedding:   []float32{9, 9, 9, 9},
		Concepts:    []*store.Concept{{Term: "stale", Frequency: 99, Importance: 1}},
		SampleCount: 99,
	})
	require.NoError(t, err)

	seedEmbeddedItem(ctx, t, ts, ownerID, store.ItemTypeNote, []float32{1, 0, 0, 0}, "fresh")

	profile, err := a.Recompute(ctx, ownerID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.EqualValues(t, 1, profile.SampleCount)
	require.Len(t, profile.Concepts, 1)
	require.Equal(t, "fresh", profile.Concepts[0].Term)
}

func TestFindSimilarOwners(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	a := NewAggregator(ts)
	me := uuid.New()
	peer := uuid.New()

	seedEmbeddedItem(ctx, t, ts, me, store.ItemTypeNote, []float32{1, 0, 0, 0})
	_, err := a.Recompute(ctx, me)
	require.NoError(t, err)

	seedEmbeddedItem(ctx, t, ts, peer, store.ItemTypeNote, []float32{1, 0.1, 0, 0})
	_, err = a.Recompute(ctx, peer)
	require.NoError(t, err)

	similar, err := a.FindSimilarOwners(ctx, me)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	require.Equal(t, peer, similar[0].OwnerID)
	require.Greater(t, similar[0].Score, float32(0.9))
}

func TestFindSimilarOwnersWithoutProfile(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	a := NewAggregator(ts)

	similar, err := a.FindSimilarOwners(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, similar)
}
