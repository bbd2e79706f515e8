package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Collection is a user-defined grouping of items, mirrored from the main
// application and used as a recommendation signal.
type Collection struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	CreatedTs int64
}

// FindCollection is the find condition for collections.
type FindCollection struct {
	ID      *uuid.UUID
	OwnerID *uuid.UUID
}

// CollectionItem is a collection membership row.
type CollectionItem struct {
	CollectionID uuid.UUID
	ItemID       uuid.UUID
}

// FindCollectionItem is the find condition for collection memberships.
// OwnerID filters through the owning collection.
type FindCollectionItem struct {
	CollectionID *uuid.UUID
	ItemID       *uuid.UUID
	OwnerID      *uuid.UUID
}

// ItemTag is a tag attached to an item.
type ItemTag struct {
	ItemID uuid.UUID
	Tag    string
}

// FindItemTag is the find condition for item tags.
// OwnerID filters through the owning item.
type FindItemTag struct {
	ItemID  *uuid.UUID
	OwnerID *uuid.UUID
}

// Series is an ordered sequence of documents (e.g. book series), mirrored
// from the main application for the series-continuation signal.
type Series struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
}

// FindSeries is the find condition for series.
type FindSeries struct {
	ID      *uuid.UUID
	OwnerID *uuid.UUID
}

func (s *Store) CreateCollection(ctx context.Context, create *Collection) (*Collection, error) {
	if create.OwnerID == uuid.Nil {
		return nil, errors.New("owner id is required")
	}
	if create.ID == uuid.Nil {
		create.ID = uuid.New()
	}
	return s.driver.CreateCollection(ctx, create)
}

func (s *Store) ListCollections(ctx context.Context, find *FindCollection) ([]*Collection, error) {
	return s.driver.ListCollections(ctx, find)
}

func (s *Store) UpsertCollectionItem(ctx context.Context, upsert *CollectionItem) error {
	return s.driver.UpsertCollectionItem(ctx, upsert)
}

func (s *Store) ListCollectionItems(ctx context.Context, find *FindCollectionItem) ([]*CollectionItem, error) {
	return s.driver.ListCollectionItems(ctx, find)
}

func (s *Store) UpsertItemTag(ctx context.Context, upsert *ItemTag) error {
	if upsert.Tag == "" {
		return errors.New("tag cannot be empty")
	}
	return s.driver.UpsertItemTag(ctx, upsert)
}

func (s *Store) ListItemTags(ctx context.Context, find *FindItemTag) ([]*ItemTag, error) {
	return s.driver.ListItemTags(ctx, find)
}

func (s *Store) CreateSeries(ctx context.Context, create *Series) (*Series, error) {
	if create.OwnerID == uuid.Nil {
		return nil, errors.New("owner id is required")
	}
	if create.ID == uuid.Nil {
		create.ID = uuid.New()
	}
	return s.driver.CreateSeries(ctx, create)
}

func (s *Store) ListSeries(ctx context.Context, find *FindSeries) ([]*Series, error) {
	return s.driver.ListSeries(ctx, find)
}
