package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ItemEmbedding represents the vector embedding of a content item.
// One vector per item, overwritten on regeneration.
type ItemEmbedding struct {
	ID        int32
	ItemType  ItemType
	ItemID    uuid.UUID
	OwnerID   uuid.UUID
	Embedding []float32
	Model     string // Model identifier, e.g., "BAAI/bge-m3"
	CreatedTs int64
	UpdatedTs int64
}

// FindItemEmbedding is the find condition for item embeddings.
type FindItemEmbedding struct {
	ItemID       *uuid.UUID
	OwnerID      *uuid.UUID
	ItemTypes    []ItemType
	CreatedAfter *int64
}

// DeleteItemEmbedding is the delete condition for item embeddings.
type DeleteItemEmbedding struct {
	ItemID uuid.UUID
}

// ItemWithScore represents a vector search result with similarity score.
type ItemWithScore struct {
	ItemID   uuid.UUID
	ItemType ItemType
	Score    float32 // Cosine similarity (0-1, higher is more similar)
}

// VectorSearchOptions represents the options for vector search.
type VectorSearchOptions struct {
	OwnerID uuid.UUID // Required, only search items of this owner
	Vector  []float32 // Query vector
	Limit   int       // Number of results to return, default 10
	// ExcludeItemID removes the query item itself from the result set.
	ExcludeItemID *uuid.UUID
	// MinScore drops results below this similarity.
	MinScore float32
}

// Validate checks the options and applies defaults.
func (opts *VectorSearchOptions) Validate() error {
	if opts.OwnerID == uuid.Nil {
		return errors.New("invalid OwnerID: owner is required")
	}
	if len(opts.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if opts.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if opts.Limit == 0 {
		opts.Limit = 10
	}
	if opts.Limit > 1000 {
		return errors.New("limit too large: maximum is 1000")
	}
	return nil
}

// UpsertItemEmbedding inserts or updates an item embedding.
func (s *Store) UpsertItemEmbedding(ctx context.Context, embedding *ItemEmbedding) (*ItemEmbedding, error) {
	if !embedding.ItemType.IsValid() {
		return nil, errors.Errorf("unknown item type: %s", embedding.ItemType)
	}
	if len(embedding.Embedding) == 0 {
		return nil, errors.New("embedding vector cannot be empty")
	}
	now := time.Now().Unix()
	if embedding.CreatedTs == 0 {
		embedding.CreatedTs = now
	}
	embedding.UpdatedTs = now
	return s.driver.UpsertItemEmbedding(ctx, embedding)
}

// GetItemEmbedding gets the embedding of a specific item, or nil if the
// item has no vector yet.
func (s *Store) GetItemEmbedding(ctx context.Context, itemID uuid.UUID) (*ItemEmbedding, error) {
	list, err := s.driver.ListItemEmbeddings(ctx, &FindItemEmbedding{ItemID: &itemID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListItemEmbeddings lists item embeddings.
func (s *Store) ListItemEmbeddings(ctx context.Context, find *FindItemEmbedding) ([]*ItemEmbedding, error) {
	return s.driver.ListItemEmbeddings(ctx, find)
}

// DeleteItemEmbedding deletes an item embedding.
func (s *Store) DeleteItemEmbedding(ctx context.Context, delete *DeleteItemEmbedding) error {
	return s.driver.DeleteItemEmbedding(ctx, delete)
}

// VectorSearch performs vector similarity search over one owner's items.
func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*ItemWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.VectorSearch(ctx, opts)
}
