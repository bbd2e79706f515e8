package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Item model related methods.
	CreateItem(ctx context.Context, create *Item) (*Item, error)
	ListItems(ctx context.Context, find *FindItem) ([]*Item, error)
	UpdateItem(ctx context.Context, update *UpdateItem) error
	DeleteItem(ctx context.Context, delete *DeleteItem) error

	// EmbeddingJob model related methods.
	// EnqueueEmbeddingJob inserts a job unless an active job already exists
	// for the same (item_type, item_id); in that case the existing job's
	// priority is raised to the maximum of both and its timestamp refreshed.
	EnqueueEmbeddingJob(ctx context.Context, create *EmbeddingJob) (*EmbeddingJob, error)
	// LeaseEmbeddingJobs atomically claims up to BatchSize pending jobs and
	// marks them processing. Concurrent callers never receive the same job.
	LeaseEmbeddingJobs(ctx context.Context, lease *LeaseEmbeddingJobs) ([]*EmbeddingJob, error)
	// CompleteEmbeddingJob transitions a processing job to completed.
	// Returns false when the job is not currently processing.
	CompleteEmbeddingJob(ctx context.Context, id int32, completedTs int64) (bool, error)
	// FailEmbeddingJob records a failure: back to pending while retries
	// remain, terminal failed otherwise. Returns the updated job, or nil
	// when the job was not processing.
	FailEmbeddingJob(ctx context.Context, id int32, errorMessage string, failedTs int64) (*EmbeddingJob, error)
	// ResetExpiredEmbeddingJobs returns processing jobs started before the
	// given timestamp to pending. Returns the number of jobs reset.
	ResetExpiredEmbeddingJobs(ctx context.Context, startedBefore int64) (int64, error)
	ListEmbeddingJobs(ctx context.Context, find *FindEmbeddingJob) ([]*EmbeddingJob, error)

	// ItemEmbedding model related methods.
	UpsertItemEmbedding(ctx context.Context, embedding *ItemEmbedding) (*ItemEmbedding, error)
	ListItemEmbeddings(ctx context.Context, find *FindItemEmbedding) ([]*ItemEmbedding, error)
	DeleteItemEmbedding(ctx context.Context, delete *DeleteItemEmbedding) error

	// VectorSearch performs cosine similarity search over item embeddings,
	// scoped to one owner, excluding the query item itself.
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*ItemWithScore, error)

	// ItemRelation model related methods.
	UpsertItemRelation(ctx context.Context, upsert *ItemRelation) (*ItemRelation, error)
	ListItemRelations(ctx context.Context, find *FindItemRelation) ([]*ItemRelation, error)
	DeleteItemRelation(ctx context.Context, delete *DeleteItemRelation) error

	// Collection model related methods.
	CreateCollection(ctx context.Context, create *Collection) (*Collection, error)
	ListCollections(ctx context.Context, find *FindCollection) ([]*Collection, error)
	UpsertCollectionItem(ctx context.Context, upsert *CollectionItem) error
	ListCollectionItems(ctx context.Context, find *FindCollectionItem) ([]*CollectionItem, error)

	// ItemTag model related methods.
	UpsertItemTag(ctx context.Context, upsert *ItemTag) error
	ListItemTags(ctx context.Context, find *FindItemTag) ([]*ItemTag, error)

	// Series model related methods.
	CreateSeries(ctx context.Context, create *Series) (*Series, error)
	ListSeries(ctx context.Context, find *FindSeries) ([]*Series, error)

	// InterestProfile model related methods.
	UpsertInterestProfile(ctx context.Context, upsert *InterestProfile) (*InterestProfile, error)
	GetInterestProfile(ctx context.Context, ownerID uuid.UUID) (*InterestProfile, error)
	// SearchInterestProfiles performs cosine similarity search over other
	// owners' aggregate vectors.
	SearchInterestProfiles(ctx context.Context, opts *ProfileSearchOptions) ([]*OwnerWithScore, error)
}
