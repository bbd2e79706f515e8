package test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/leafmark/leafmark/store"
)

func TestEmbeddingJobEnqueueDeduplicates(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	itemID := uuid.New()

	job, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, itemID, 0)
	require.NoError(t, err)
	require.Equal(t, store.JobStatusPending, job.Status)
	require.EqualValues(t, store.DefaultJobPriority, job.Priority)
	require.EqualValues(t, store.DefaultMaxRetries, job.MaxRetries)
	require.NotEmpty(t, job.UID)

	// Re-enqueueing the same item must not create a second active job.
	again, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, itemID, 3)
	require.NoError(t, err)
	require.Equal(t, job.ID, again.ID)
	require.EqualValues(t, store.DefaultJobPriority, again.Priority)

	// A higher requested priority wins.
	raised, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, itemID, 9)
	require.NoError(t, err)
	require.Equal(t, job.ID, raised.ID)
	require.EqualValues(t, 9, raised.Priority)

	pending, err := ts.ListEmbeddingJobs(ctx, &store.FindEmbeddingJob{ItemID: &itemID})
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestEmbeddingJobEnqueueAfterCompletion(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()
	itemID := uuid.New()

	job, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeHighlight, itemID, 5)
	require.NoError(t, err)

	leased, err := ts.LeaseEmbeddingJobs(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, leased, 1)
	require.Equal(t, store.JobStatusProcessing, leased[0].Status)
	require.NotZero(t, leased[0].StartedTs)

	ok, err := ts.CompleteEmbeddingJob(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Completing twice reports the job as no longer owned.
	ok, err = ts.CompleteEmbeddingJob(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// A completed item may be enqueued again as a fresh job.
	fresh, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeHighlight, itemID, 5)
	require.NoError(t, err)
	require.NotEqual(t, job.ID, fresh.ID)
	require.Equal(t, store.JobStatusPending, fresh.Status)
}

func TestEmbeddingJobLeaseOrderAndExclusivity(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()

	low, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, uuid.New(), 2)
	require.NoError(t, err)
	high, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, uuid.New(), 8)
	require.NoError(t, err)
	mid, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, uuid.New(), 5)
	require.NoError(t, err)

	leased, err := ts.LeaseEmbeddingJobs(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, leased, 2)
	require.Equal(t, high.ID, leased[0].ID)
	require.Equal(t, mid.ID, leased[1].ID)

	// A second lease only sees what the first one left behind.
	rest, err := ts.LeaseEmbeddingJobs(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, low.ID, rest[0].ID)

	empty, err := ts.LeaseEmbeddingJobs(ctx, 10, 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEmbeddingJobConcurrentLeaseClaimsEachJobOnce(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()

	const jobCount = 40
	const workers = 8

	for i := 0; i < jobCount; i++ {
		_, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, uuid.New(), int32(i%10))
		require.NoError(t, err)
	}

	var mu sync.Mutex
	claims := map[int32]int{}

	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for {
				leased, err := ts.LeaseEmbeddingJobs(ctx, 3, 10)
				if err != nil {
					return err
				}
				if len(leased) == 0 {
					return nil
				}
				mu.Lock()
				for _, job := range leased {
					claims[job.ID]++
				}
				mu.Unlock()
			}
		})
	}
	require.NoError(t, eg.Wait())

	// Every job is claimed by exactly one lessee.
	require.Len(t, claims, jobCount)
	for id, count := range claims {
		require.Equalf(t, 1, count, "job %d leased %d times", id, count)
	}
}

func TestEmbeddingJobRetryUntilTerminalFailure(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()

	job, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeDocument, uuid.New(), 5)
	require.NoError(t, err)
	require.EqualValues(t, 3, job.MaxRetries)

	// First two failures return the job to the queue.
	for attempt := 1; attempt <= 2; attempt++ {
		leased, err := ts.LeaseEmbeddingJobs(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, leased, 1)

		failed, err := ts.FailEmbeddingJob(ctx, job.ID, errors.New("provider timeout"))
		require.NoError(t, err)
		require.NotNil(t, failed)
		require.Equal(t, store.JobStatusPending, failed.Status)
		require.EqualValues(t, attempt, failed.RetryCount)
		require.Equal(t, "provider timeout", failed.ErrorMessage)
	}

	// The third failure is terminal.
	leased, err := ts.LeaseEmbeddingJobs(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	failed, err := ts.FailEmbeddingJob(ctx, job.ID, errors.New("provider down"))
	require.NoError(t, err)
	require.NotNil(t, failed)
	require.Equal(t, store.JobStatusFailed, failed.Status)
	require.EqualValues(t, 3, failed.RetryCount)
	require.Equal(t, "provider down", failed.ErrorMessage)

	// Failed jobs never come back through the lease path.
	empty, err := ts.LeaseEmbeddingJobs(ctx, 10, 10)
	require.NoError(t, err)
	require.Empty(t, empty)

	// Failing a job that is not processing is a no-op.
	gone, err := ts.FailEmbeddingJob(ctx, job.ID, errors.New("late"))
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestEmbeddingJobLeaseExpiry(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	ownerID := uuid.New()

	job, err := ts.EnqueueEmbeddingJob(ctx, ownerID, store.ItemTypeNote, uuid.New(), 5)
	require.NoError(t, err)

	leased, err := ts.LeaseEmbeddingJobs(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	// A generous TTL leaves the fresh lease alone.
	reset, err := ts.ResetExpiredEmbeddingJobs(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, reset)

	// A negative TTL treats every lease as already expired.
	reset, err = ts.ResetExpiredEmbeddingJobs(ctx, -time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, reset)

	reclaimed, err := ts.LeaseEmbeddingJobs(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	require.Equal(t, job.ID, reclaimed[0].ID)

	// The original holder lost ownership when the lease was reset.
	found, err := ts.GetEmbeddingJobByUID(ctx, job.UID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, store.JobStatusProcessing, found.Status)
}
