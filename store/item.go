package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RowStatus is the status of a row.
type RowStatus string

const (
	// Normal is the status for a normal row.
	Normal RowStatus = "NORMAL"
	// Archived is the status for an archived row.
	Archived RowStatus = "ARCHIVED"
)

func (r RowStatus) String() string {
	return string(r)
}

// ItemType is the type of a content item.
type ItemType string

const (
	ItemTypeNote          ItemType = "NOTE"
	ItemTypeHighlight     ItemType = "HIGHLIGHT"
	ItemTypeDocument      ItemType = "DOCUMENT"
	ItemTypeExternalPaper ItemType = "EXTERNAL_PAPER"
)

// IsValid reports whether t is one of the known item types.
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeNote, ItemTypeHighlight, ItemTypeDocument, ItemTypeExternalPaper:
		return true
	}
	return false
}

// Item is the engine's read model of a content item (note, highlight,
// document, or externally sourced paper). The main application owns the
// authoritative copy; the engine mirrors what the similarity and
// recommendation paths need.
type Item struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Type    ItemType
	Title   string
	Content string
	// Progress is the reading progress in percent (0-100). Only meaningful
	// for documents.
	Progress float64
	// SeriesID and SeriesOrder place a document inside a series.
	SeriesID    *uuid.UUID
	SeriesOrder *int32
	RowStatus   RowStatus
	CreatedTs   int64
	UpdatedTs   int64
}

// FindItem is the find condition for items.
type FindItem struct {
	ID           *uuid.UUID
	OwnerID      *uuid.UUID
	Types        []ItemType
	SeriesID     *uuid.UUID
	MinProgress  *float64
	MaxProgress  *float64
	CreatedAfter *int64
	RowStatus    *RowStatus
	Limit        *int
}

// UpdateItem is the update condition for items.
type UpdateItem struct {
	ID          uuid.UUID
	Title       *string
	Content     *string
	Progress    *float64
	SeriesID    *uuid.UUID
	SeriesOrder *int32
	RowStatus   *RowStatus
	UpdatedTs   *int64
}

// DeleteItem is the delete condition for items. Deleting an item cascades
// to its embedding and relations.
type DeleteItem struct {
	ID uuid.UUID
}

func (s *Store) CreateItem(ctx context.Context, create *Item) (*Item, error) {
	if !create.Type.IsValid() {
		return nil, errors.Errorf("unknown item type: %s", create.Type)
	}
	if create.OwnerID == uuid.Nil {
		return nil, errors.New("owner id is required")
	}
	if create.ID == uuid.Nil {
		create.ID = uuid.New()
	}
	if create.RowStatus == "" {
		create.RowStatus = Normal
	}
	return s.driver.CreateItem(ctx, create)
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	if cached, ok := s.itemCache.Get(id.String()); ok {
		if item, ok := cached.(*Item); ok {
			return item, nil
		}
	}
	list, err := s.driver.ListItems(ctx, &FindItem{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	item := list[0]
	s.itemCache.Set(id.String(), item)
	return item, nil
}

func (s *Store) ListItems(ctx context.Context, find *FindItem) ([]*Item, error) {
	return s.driver.ListItems(ctx, find)
}

func (s *Store) UpdateItem(ctx context.Context, update *UpdateItem) error {
	if err := s.driver.UpdateItem(ctx, update); err != nil {
		return err
	}
	s.itemCache.Delete(update.ID.String())
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, delete *DeleteItem) error {
	if err := s.driver.DeleteItem(ctx, delete); err != nil {
		return err
	}
	s.itemCache.Delete(delete.ID.String())
	return nil
}
