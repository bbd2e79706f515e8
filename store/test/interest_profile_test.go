package test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leafmark/leafmark/store"
)

func TestInterestProfileUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()

	missing, err := ts.GetInterestProfile(ctx, ownerID)
	require.NoError(t, err)
	require.Nil(t, missing)

	profile, err := ts.UpsertInterestProfile(ctx, &store.InterestProfile{
		OwnerID:   ownerID,
		Embedding: testVector(8, 0.4),
		Concepts: []*store.Concept{
			{Term: "distributed-systems", Frequency: 12, Importance: 0.9},
			{Term: "databases", Frequency: 7, Importance: 0.6},
		},
		SampleCount: 19,
	})
	require.NoError(t, err)
	require.NotZero(t, profile.ComputedTs)

	got, err := ts.GetInterestProfile(ctx, ownerID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.EqualValues(t, 19, got.SampleCount)
	require.Len(t, got.Concepts, 2)
	require.Equal(t, "distributed-systems", got.Concepts[0].Term)

	// Recomputation replaces the profile wholesale.
	_, err = ts.UpsertInterestProfile(ctx, &store.InterestProfile{
		OwnerID:     ownerID,
		Embedding:   testVector(8, 0.6),
		Concepts:    []*store.Concept{{Term: "compilers", Frequency: 3, Importance: 0.8}},
		SampleCount: 3,
	})
	require.NoError(t, err)

	got, err = ts.GetInterestProfile(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, got.Concepts, 1)
	require.Equal(t, "compilers", got.Concepts[0].Term)
	require.EqualValues(t, 3, got.SampleCount)
}

func TestSearchInterestProfilesExcludesSelf(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	me := uuid.New()
	twin := uuid.New()
	stranger := uuid.New()

	for _, row := range []struct {
		owner uuid.UUID
		seed  float32
	}{
		{me, 0.3},
		{twin, 0.3},
		{stranger, 0.97},
	} {
		_, err := ts.UpsertInterestProfile(ctx, &store.InterestProfile{
			OwnerID:     row.owner,
			Embedding:   testVector(8, row.seed),
			SampleCount: 5,
		})
		require.NoError(t, err)
	}

	results, err := ts.SearchInterestProfiles(ctx, &store.ProfileSearchOptions{
		OwnerID:   me,
		Vector:    testVector(8, 0.3),
		Threshold: 0.9,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, twin, results[0].OwnerID)
	require.Greater(t, results[0].Score, float32(0.99))
}
