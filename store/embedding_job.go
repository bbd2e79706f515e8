package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// JobStatus is the lifecycle status of an embedding job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// DefaultJobPriority is used when the caller does not request a priority.
const DefaultJobPriority = 5

// DefaultMaxRetries bounds how often a job may fail before it becomes
// terminally failed.
const DefaultMaxRetries = 3

// EmbeddingJob is one unit of embedding work for a content item.
//
// At most one active (pending or processing) job exists per
// (item_type, item_id); re-enqueueing an already queued item raises its
// priority instead of creating a duplicate.
type EmbeddingJob struct {
	ID           int32
	UID          string
	OwnerID      uuid.UUID
	ItemType     ItemType
	ItemID       uuid.UUID
	Status       JobStatus
	Priority     int32
	RetryCount   int32
	MaxRetries   int32
	ErrorMessage string
	CreatedTs    int64
	StartedTs    int64
	CompletedTs  int64
}

// FindEmbeddingJob is the find condition for embedding jobs.
type FindEmbeddingJob struct {
	ID       *int32
	UID      *string
	OwnerID  *uuid.UUID
	ItemID   *uuid.UUID
	Status   *JobStatus
	Statuses []JobStatus
	Limit    *int
}

// LeaseEmbeddingJobs is the lease condition for the queue.
type LeaseEmbeddingJobs struct {
	// BatchSize is the maximum number of jobs to claim.
	BatchSize int
	// MaxPriority excludes jobs with a priority above this value.
	MaxPriority int32
	// LeasedTs is stamped as started_ts on every claimed job.
	LeasedTs int64
}

// EnqueueEmbeddingJob queues an embedding computation for the given item.
// If an active job for the item already exists, its priority is raised to
// max(existing, requested) and the job refreshed instead of duplicated.
func (s *Store) EnqueueEmbeddingJob(ctx context.Context, ownerID uuid.UUID, itemType ItemType, itemID uuid.UUID, priority int32) (*EmbeddingJob, error) {
	if !itemType.IsValid() {
		return nil, errors.Errorf("unknown item type: %s", itemType)
	}
	if ownerID == uuid.Nil {
		return nil, errors.New("owner id is required")
	}
	if itemID == uuid.Nil {
		return nil, errors.New("item id is required")
	}
	if priority <= 0 {
		priority = DefaultJobPriority
	}
	return s.driver.EnqueueEmbeddingJob(ctx, &EmbeddingJob{
		UID:        shortuuid.New(),
		OwnerID:    ownerID,
		ItemType:   itemType,
		ItemID:     itemID,
		Status:     JobStatusPending,
		Priority:   priority,
		MaxRetries: DefaultMaxRetries,
		CreatedTs:  time.Now().Unix(),
	})
}

// LeaseEmbeddingJobs atomically claims up to batchSize pending jobs with
// retries remaining and priority <= maxPriority, ordered by priority
// descending then age. Claimed jobs are marked processing and belong to
// this caller exclusively until completed, failed, or lease-expired.
func (s *Store) LeaseEmbeddingJobs(ctx context.Context, batchSize int, maxPriority int32) ([]*EmbeddingJob, error) {
	if batchSize <= 0 {
		return nil, nil
	}
	return s.driver.LeaseEmbeddingJobs(ctx, &LeaseEmbeddingJobs{
		BatchSize:   batchSize,
		MaxPriority: maxPriority,
		LeasedTs:    time.Now().Unix(),
	})
}

// CompleteEmbeddingJob marks a processing job as completed. Returns false
// when the job is not processing, e.g. when a lease expired and the job was
// reassigned; the caller must not treat its work as owned in that case.
func (s *Store) CompleteEmbeddingJob(ctx context.Context, id int32) (bool, error) {
	return s.driver.CompleteEmbeddingJob(ctx, id, time.Now().Unix())
}

// FailEmbeddingJob records a failure for a processing job. The job returns
// to pending while retries remain and becomes terminally failed otherwise;
// the last error message is preserved either way. Returns the updated job,
// or nil when the job was not processing.
func (s *Store) FailEmbeddingJob(ctx context.Context, id int32, jobErr error) (*EmbeddingJob, error) {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return s.driver.FailEmbeddingJob(ctx, id, msg, time.Now().Unix())
}

// ResetExpiredEmbeddingJobs returns processing jobs whose lease started
// before now-ttl back to pending so another worker can claim them.
func (s *Store) ResetExpiredEmbeddingJobs(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.driver.ResetExpiredEmbeddingJobs(ctx, time.Now().Add(-ttl).Unix())
}

func (s *Store) ListEmbeddingJobs(ctx context.Context, find *FindEmbeddingJob) ([]*EmbeddingJob, error) {
	return s.driver.ListEmbeddingJobs(ctx, find)
}

// GetEmbeddingJobByUID returns one job by its public UID, or nil.
func (s *Store) GetEmbeddingJobByUID(ctx context.Context, uid string) (*EmbeddingJob, error) {
	list, err := s.driver.ListEmbeddingJobs(ctx, &FindEmbeddingJob{UID: &uid})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
