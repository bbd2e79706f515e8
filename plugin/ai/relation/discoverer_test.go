package relation

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leafmark/leafmark/store"
	storetest "github.com/leafmark/leafmark/store/test"
)

// directionVector returns a unit vector whose cosine similarity to
// directionVector(1) equals cosine.
func directionVector(cosine float64) []float32 {
	v := make([]float32, 8)
	v[0] = float32(cosine)
	v[1] = float32(math.Sqrt(1 - cosine*cosine))
	return v
}

func seedItemWithVector(ctx context.Context, t *testing.T, ts *store.Store, ownerID uuid.UUID, title string, vector []float32) *store.Item {
	item, err := ts.CreateItem(ctx, &store.Item{
		OwnerID: ownerID,
		Type:    store.ItemTypeNote,
		Title:   title,
		Content: title,
	})
	require.NoError(t, err)
	_, err = ts.UpsertItemEmbedding(ctx, &store.ItemEmbedding{
		ItemType:  store.ItemTypeNote,
		ItemID:    item.ID,
		OwnerID:   ownerID,
		Embedding: vector,
		Model:     "BAAI/bge-m3",
	})
	require.NoError(t, err)
	return item
}

func TestDiscoverCreatesSymmetricEdges(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	d := NewDiscoverer(ts)
	ownerID := uuid.New()

	x := seedItemWithVector(ctx, t, ts, ownerID, "x", directionVector(1))
	y := seedItemWithVector(ctx, t, ts, ownerID, "y", directionVector(0.85))
	z := seedItemWithVector(ctx, t, ts, ownerID, "z", directionVector(0.72))
	seedItemWithVector(ctx, t, ts, ownerID, "unrelated", directionVector(0.40))

	count, err := d.Discover(ctx, ownerID, x.ID)
	require.NoError(t, err)
	// Two neighbors above the threshold, stored in both directions.
	require.Equal(t, 4, count)

	edges, err := ts.ListItemRelations(ctx, &store.FindItemRelation{SourceItemID: &x.ID})
	require.NoError(t, err)
	require.Len(t, edges, 2)

	byTarget := map[uuid.UUID]*store.ItemRelation{}
	for _, edge := range edges {
		byTarget[edge.RelatedItemID] = edge
	}

	require.Contains(t, byTarget, y.ID)
	require.Equal(t, store.RelationExtension, byTarget[y.ID].Label)
	require.InDelta(t, 85, byTarget[y.ID].Strength, 0.5)

	require.Contains(t, byTarget, z.ID)
	require.Equal(t, store.RelationSharedTopic, byTarget[z.ID].Label)
	require.InDelta(t, 72, byTarget[z.ID].Strength, 0.5)

	// Every edge exists in the reverse direction with the same strength.
	for _, edge := range edges {
		reverse, err := ts.ListItemRelations(ctx, &store.FindItemRelation{
			SourceItemID:  &edge.RelatedItemID,
			RelatedItemID: &edge.SourceItemID,
		})
		require.NoError(t, err)
		require.Len(t, reverse, 1)
		require.Equal(t, edge.Label, reverse[0].Label)
		require.InDelta(t, edge.Strength, reverse[0].Strength, 0.001)
	}
}

func TestDiscoverIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	d := NewDiscoverer(ts)
	ownerID := uuid.New()

	x := seedItemWithVector(ctx, t, ts, ownerID, "x", directionVector(1))
	seedItemWithVector(ctx, t, ts, ownerID, "y", directionVector(0.9))

	for i := 0; i < 3; i++ {
		_, err := d.Discover(ctx, ownerID, x.ID)
		require.NoError(t, err)
	}

	edges, err := ts.ListItemRelations(ctx, &store.FindItemRelation{OwnerID: &ownerID})
	require.NoError(t, err)
	require.Len(t, edges, 2)
}

func TestDiscoverWithoutVectorIsNoop(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	d := NewDiscoverer(ts)
	ownerID := uuid.New()

	item, err := ts.CreateItem(ctx, &store.Item{
		OwnerID: ownerID,
		Type:    store.ItemTypeNote,
		Title:   "no vector yet",
		Content: "no vector yet",
	})
	require.NoError(t, err)

	count, err := d.Discover(ctx, ownerID, item.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestBackfillProcessesAllEmbeddedItems(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	d := NewDiscoverer(ts)
	ownerID := uuid.New()

	seedItemWithVector(ctx, t, ts, ownerID, "a", directionVector(1))
	seedItemWithVector(ctx, t, ts, ownerID, "b", directionVector(0.95))
	seedItemWithVector(ctx, t, ts, ownerID, "c", directionVector(0.9))

	processed, err := d.Backfill(ctx, ownerID)
	require.NoError(t, err)
	require.Equal(t, 3, processed)

	edges, err := ts.ListItemRelations(ctx, &store.FindItemRelation{OwnerID: &ownerID})
	require.NoError(t, err)
	require.NotEmpty(t, edges)
	for _, edge := range edges {
		require.NotEqual(t, edge.SourceItemID, edge.RelatedItemID)
	}
}

func TestRoundStrength(t *testing.T) {
	require.InDelta(t, 85.25, roundStrength(0.8525), 0.0001)
	require.InDelta(t, 100, roundStrength(1), 0.0001)
	require.InDelta(t, 60, roundStrength(0.6), 0.0001)
}
