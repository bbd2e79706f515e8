package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RelationLabel classifies how strongly two items relate.
type RelationLabel string

const (
	RelationIdentical   RelationLabel = "Identical"
	RelationExtension   RelationLabel = "Extension / Follow-up"
	RelationSharedTopic RelationLabel = "Shared Topic"
	RelationTangential  RelationLabel = "Related (Tangential)"
)

// RelationStatus is the processing status of a relation edge.
type RelationStatus string

const (
	RelationStatusPending   RelationStatus = "PENDING"
	RelationStatusCompleted RelationStatus = "COMPLETED"
	RelationStatusFailed    RelationStatus = "FAILED"
)

// ClassifyStrength maps an edge strength (0-100) to a relation label.
// Strength below 70 still yields an edge when it cleared the discovery
// threshold; it is just tangential.
func ClassifyStrength(strength float64) RelationLabel {
	switch {
	case strength >= 90:
		return RelationIdentical
	case strength >= 80:
		return RelationExtension
	case strength >= 70:
		return RelationSharedTopic
	default:
		return RelationTangential
	}
}

// ItemRelation is one direction of a symmetric similarity edge between two
// items of the same owner. For every stored (A, B) edge a (B, A) edge with
// the same label and strength exists.
type ItemRelation struct {
	ID            int32
	OwnerID       uuid.UUID
	SourceItemID  uuid.UUID
	RelatedItemID uuid.UUID
	Label         RelationLabel
	Strength      float64 // 0-100, two decimals
	Status        RelationStatus
	CreatedTs     int64
	UpdatedTs     int64
}

// FindItemRelation is the find condition for item relations.
type FindItemRelation struct {
	OwnerID       *uuid.UUID
	SourceItemID  *uuid.UUID
	RelatedItemID *uuid.UUID
	MinStrength   *float64
}

// DeleteItemRelation is the delete condition for item relations.
type DeleteItemRelation struct {
	OwnerID      *uuid.UUID
	SourceItemID *uuid.UUID
}

// UpsertItemRelation inserts or refreshes one edge direction. Conflicts on
// (source_item_id, related_item_id) update label, strength, and timestamp
// instead of duplicating the edge.
func (s *Store) UpsertItemRelation(ctx context.Context, upsert *ItemRelation) (*ItemRelation, error) {
	if upsert.SourceItemID == upsert.RelatedItemID {
		return nil, errors.New("an item cannot relate to itself")
	}
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now
	if upsert.Status == "" {
		upsert.Status = RelationStatusCompleted
	}
	return s.driver.UpsertItemRelation(ctx, upsert)
}

func (s *Store) ListItemRelations(ctx context.Context, find *FindItemRelation) ([]*ItemRelation, error) {
	return s.driver.ListItemRelations(ctx, find)
}

func (s *Store) DeleteItemRelation(ctx context.Context, delete *DeleteItemRelation) error {
	return s.driver.DeleteItemRelation(ctx, delete)
}
