package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Concept is one ranked term of an owner's interest profile.
type Concept struct {
	Term       string  `json:"term"`
	Frequency  int32   `json:"frequency"`
	Importance float64 `json:"importance"`
}

// InterestProfile is one owner's rolling interest snapshot: the average of
// their recent note/highlight embeddings plus ranked concepts. Replaced
// wholesale on each recomputation, never merged incrementally.
type InterestProfile struct {
	OwnerID     uuid.UUID
	Embedding   []float32
	Concepts    []*Concept
	SampleCount int32
	ComputedTs  int64
}

// OwnerWithScore is a similar-owner search result.
type OwnerWithScore struct {
	OwnerID uuid.UUID
	Score   float32 // Cosine similarity (0-1)
}

// ProfileSearchOptions represents the options for cross-owner profile search.
type ProfileSearchOptions struct {
	// OwnerID is excluded from the results (never match yourself).
	OwnerID   uuid.UUID
	Vector    []float32
	Threshold float32
	Limit     int
}

// Validate checks the options and applies defaults.
func (opts *ProfileSearchOptions) Validate() error {
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
	return nil
}

// UpsertInterestProfile replaces the owner's profile.
func (s *Store) UpsertInterestProfile(ctx context.Context, upsert *InterestProfile) (*InterestProfile, error) {
	if upsert.OwnerID == uuid.Nil {
		return nil, errors.New("owner id is required")
	}
	if upsert.ComputedTs == 0 {
		upsert.ComputedTs = time.Now().Unix()
	}
	profile, err := s.driver.UpsertInterestProfile(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.profileCache.Set(upsert.OwnerID.String(), profile)
	return profile, nil
}

// GetInterestProfile returns the owner's profile, or nil when none has been
// computed yet.
func (s *Store) GetInterestProfile(ctx context.Context, ownerID uuid.UUID) (*InterestProfile, error) {
	if cached, ok := s.profileCache.Get(ownerID.String()); ok {
		if profile, ok := cached.(*InterestProfile); ok {
			return profile, nil
		}
	}
	profile, err := s.driver.GetInterestProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		s.profileCache.Set(ownerID.String(), profile)
	}
	return profile, nil
}

// SearchInterestProfiles finds owners with similar aggregate vectors.
func (s *Store) SearchInterestProfiles(ctx context.Context, opts *ProfileSearchOptions) ([]*OwnerWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.SearchInterestProfiles(ctx, opts)
}
