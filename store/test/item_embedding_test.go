package test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leafmark/leafmark/store"
)

func testVector(dims int, seed float32) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = seed
	}
	// Make the direction depend on the seed, not just the magnitude,
	// so cosine similarity actually distinguishes vectors.
	v[0] = 1 - seed
	return v
}

func createTestItem(ctx context.Context, t *testing.T, ts *store.Store, ownerID uuid.UUID, itemType store.ItemType, content string) *store.Item {
	item, err := ts.CreateItem(ctx, &store.Item{
		OwnerID: ownerID,
		Type:    itemType,
		Title:   content,
		Content: content,
	})
	require.NoError(t, err)
	return item
}

func TestItemEmbeddingUpsert(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	item := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "raft consensus notes")

	embedding, err := ts.UpsertItemEmbedding(ctx, &store.ItemEmbedding{
		ItemType:  store.ItemTypeNote,
		ItemID:    item.ID,
		OwnerID:   ownerID,
		Embedding: testVector(8, 0.1),
		Model:     "BAAI/bge-m3",
	})
	require.NoError(t, err)
	require.Greater(t, embedding.ID, int32(0))

	// Regeneration overwrites in place, one vector per item.
	updated, err := ts.UpsertItemEmbedding(ctx, &store.ItemEmbedding{
		ItemType:  store.ItemTypeNote,
		ItemID:    item.ID,
		OwnerID:   ownerID,
		Embedding: testVector(8, 0.9),
		Model:     "BAAI/bge-m3",
	})
	require.NoError(t, err)

	got, err := ts.GetItemEmbedding(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, updated.Embedding, got.Embedding)

	list, err := ts.ListItemEmbeddings(ctx, &store.FindItemEmbedding{OwnerID: &ownerID})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestVectorSearchScopedToOwner(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	otherOwnerID := uuid.New()

	query := testVector(8, 0.2)

	near := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "near")
	far := createTestItem(ctx, t, ts, ownerID, store.ItemTypeDocument, "far")
	foreign := createTestItem(ctx, t, ts, otherOwnerID, store.ItemTypeNote, "foreign")

	for _, row := range []struct {
		item  *store.Item
		owner uuid.UUID
		seed  float32
	}{
		{near, ownerID, 0.2},
		{far, ownerID, 0.95},
		{foreign, otherOwnerID, 0.2},
	} {
		_, err := ts.UpsertItemEmbedding(ctx, &store.ItemEmbedding{
			ItemType:  row.item.Type,
			ItemID:    row.item.ID,
			OwnerID:   row.owner,
			Embedding: testVector(8, row.seed),
			Model:     "BAAI/bge-m3",
		})
		require.NoError(t, err)
	}

	results, err := ts.VectorSearch(ctx, &store.VectorSearchOptions{
		OwnerID: ownerID,
		Vector:  query,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, near.ID, results[0].ItemID)
	require.Equal(t, far.ID, results[1].ItemID)
	require.Greater(t, results[0].Score, results[1].Score)

	// Another owner's items never leak into the results.
	for _, result := range results {
		require.NotEqual(t, foreign.ID, result.ItemID)
	}

	// Excluding the query item drops it from its own neighborhood.
	excluded, err := ts.VectorSearch(ctx, &store.VectorSearchOptions{
		OwnerID:       ownerID,
		Vector:        query,
		Limit:         10,
		ExcludeItemID: &near.ID,
	})
	require.NoError(t, err)
	require.Len(t, excluded, 1)
	require.Equal(t, far.ID, excluded[0].ItemID)

	// MinScore prunes weak matches.
	strong, err := ts.VectorSearch(ctx, &store.VectorSearchOptions{
		OwnerID:  ownerID,
		Vector:   query,
		Limit:    10,
		MinScore: 0.99,
	})
	require.NoError(t, err)
	require.Len(t, strong, 1)
	require.Equal(t, near.ID, strong[0].ItemID)
}

func TestVectorSearchValidation(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.VectorSearch(ctx, &store.VectorSearchOptions{
		Vector: testVector(8, 0.5),
	})
	require.Error(t, err)

	_, err = ts.VectorSearch(ctx, &store.VectorSearchOptions{
		OwnerID: uuid.New(),
	})
	require.Error(t, err)

	_, err = ts.VectorSearch(ctx, &store.VectorSearchOptions{
		OwnerID: uuid.New(),
		Vector:  testVector(8, 0.5),
		Limit:   2000,
	})
	require.Error(t, err)
}
