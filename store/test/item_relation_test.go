package test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leafmark/leafmark/store"
)

func TestItemRelationUpsert(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	source := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "source")
	related := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "related")

	relation, err := ts.UpsertItemRelation(ctx, &store.ItemRelation{
		OwnerID:       ownerID,
		SourceItemID:  source.ID,
		RelatedItemID: related.ID,
		Label:         store.RelationSharedTopic,
		Strength:      72.5,
	})
	require.NoError(t, err)
	require.Greater(t, relation.ID, int32(0))
	require.Equal(t, store.RelationStatusCompleted, relation.Status)

	// Re-upserting the same edge refreshes it instead of duplicating.
	refreshed, err := ts.UpsertItemRelation(ctx, &store.ItemRelation{
		OwnerID:       ownerID,
		SourceItemID:  source.ID,
		RelatedItemID: related.ID,
		Label:         store.RelationExtension,
		Strength:      84.1,
	})
	require.NoError(t, err)
	require.Equal(t, relation.ID, refreshed.ID)

	list, err := ts.ListItemRelations(ctx, &store.FindItemRelation{SourceItemID: &source.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, store.RelationExtension, list[0].Label)
	require.InDelta(t, 84.1, list[0].Strength, 0.001)
}

func TestItemRelationRejectsSelfEdge(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	item := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "self")

	_, err := ts.UpsertItemRelation(ctx, &store.ItemRelation{
		OwnerID:       ownerID,
		SourceItemID:  item.ID,
		RelatedItemID: item.ID,
		Label:         store.RelationIdentical,
		Strength:      100,
	})
	require.Error(t, err)
}

func TestItemRelationMinStrengthFilter(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	source := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "source")
	strongTarget := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "strong")
	weakTarget := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "weak")

	for _, edge := range []struct {
		target   uuid.UUID
		strength float64
	}{
		{strongTarget.ID, 91.2},
		{weakTarget.ID, 63.4},
	} {
		_, err := ts.UpsertItemRelation(ctx, &store.ItemRelation{
			OwnerID:       ownerID,
			SourceItemID:  source.ID,
			RelatedItemID: edge.target,
			Label:         store.ClassifyStrength(edge.strength),
			Strength:      edge.strength,
		})
		require.NoError(t, err)
	}

	minStrength := 70.0
	list, err := ts.ListItemRelations(ctx, &store.FindItemRelation{
		SourceItemID: &source.ID,
		MinStrength:  &minStrength,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, strongTarget.ID, list[0].RelatedItemID)
	require.Equal(t, store.RelationIdentical, list[0].Label)
}

func TestDeleteItemCascades(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	doomed := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "doomed")
	survivor := createTestItem(ctx, t, ts, ownerID, store.ItemTypeNote, "survivor")

	_, err := ts.UpsertItemEmbedding(ctx, &store.ItemEmbedding{
		ItemType:  store.ItemTypeNote,
		ItemID:    doomed.ID,
		OwnerID:   ownerID,
		Embedding: testVector(8, 0.3),
		Model:     "BAAI/bge-m3",
	})
	require.NoError(t, err)

	for _, pair := range [][2]uuid.UUID{
		{doomed.ID, survivor.ID},
		{survivor.ID, doomed.ID},
	} {
		_, err := ts.UpsertItemRelation(ctx, &store.ItemRelation{
			OwnerID:       ownerID,
			SourceItemID:  pair[0],
			RelatedItemID: pair[1],
			Label:         store.RelationSharedTopic,
			Strength:      75,
		})
		require.NoError(t, err)
	}

	require.NoError(t, ts.DeleteItem(ctx, &store.DeleteItem{ID: doomed.ID}))

	embedding, err := ts.GetItemEmbedding(ctx, doomed.ID)
	require.NoError(t, err)
	require.Nil(t, embedding)

	// Both edge directions disappear with the item.
	relations, err := ts.ListItemRelations(ctx, &store.FindItemRelation{OwnerID: &ownerID})
	require.NoError(t, err)
	require.Empty(t, relations)

	gone, err := ts.GetItem(ctx, doomed.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}
