package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leafmark/leafmark/store"
)

// GetRecommendations aggregates all recommendation signals for one owner.
// GET /api/v1/owners/:ownerId/recommendations
func (s *APIV1Service) GetRecommendations(c echo.Context) error {
	ctx := c.Request().Context()
	ownerID, err := parseUUIDParam(c, "ownerId")
	if err != nil {
		return err
	}

	results, err := s.Recommender.Recommend(ctx, ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// BackfillResponse reports how many items a backfill processed.
type BackfillResponse struct {
	ItemsProcessed int `json:"items_processed"`
}

// BackfillRelations rediscovers relations for all of an owner's embedded
// items.
// POST /api/v1/owners/:ownerId/backfill
func (s *APIV1Service) BackfillRelations(c echo.Context) error {
	ctx := c.Request().Context()
	ownerID, err := parseUUIDParam(c, "ownerId")
	if err != nil {
		return err
	}

	processed, err := s.Discoverer.Backfill(ctx, ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, &BackfillResponse{ItemsProcessed: processed})
}

// InterestProfileResponse is the public view of an interest profile.
type InterestProfileResponse struct {
	OwnerID     uuid.UUID        `json:"owner_id"`
	Concepts    []*store.Concept `json:"top_concepts"`
	SampleCount int32            `json:"sample_count"`
	ComputedTs  int64            `json:"computed_ts"`
}

// GetInterestProfile returns the owner's current profile.
// GET /api/v1/owners/:ownerId/profile
func (s *APIV1Service) GetInterestProfile(c echo.Context) error {
	ctx := c.Request().Context()
	ownerID, err := parseUUIDParam(c, "ownerId")
	if err != nil {
		return err
	}

	profile, err := s.Store.GetInterestProfile(ctx, ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if profile == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no profile computed yet")
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// RecomputeInterestProfile rebuilds the owner's profile from recent items.
// POST /api/v1/owners/:ownerId/profile/recompute
func (s *APIV1Service) RecomputeInterestProfile(c echo.Context) error {
	ctx := c.Request().Context()
	ownerID, err := parseUUIDParam(c, "ownerId")
	if err != nil {
		return err
	}

	profile, err := s.Interest.Recompute(ctx, ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if profile == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no recent embedded items to profile")
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// SimilarOwnerResponse is one cross-owner similarity match.
type SimilarOwnerResponse struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Score   float32   `json:"score"`
}

// GetSimilarOwners finds owners with similar interest profiles.
// GET /api/v1/owners/:ownerId/similar-owners
func (s *APIV1Service) GetSimilarOwners(c echo.Context) error {
	ctx := c.Request().Context()
	ownerID, err := parseUUIDParam(c, "ownerId")
	if err != nil {
		return err
	}

	matches, err := s.Interest.FindSimilarOwners(ctx, ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	response := make([]*SimilarOwnerResponse, 0, len(matches))
	for _, match := range matches {
		response = append(response, &SimilarOwnerResponse{OwnerID: match.OwnerID, Score: match.Score})
	}
	return c.JSON(http.StatusOK, response)
}

func toProfileResponse(profile *store.InterestProfile) *InterestProfileResponse {
	return &InterestProfileResponse{
		OwnerID:     profile.OwnerID,
		Concepts:    profile.Concepts,
		SampleCount: profile.SampleCount,
		ComputedTs:  profile.ComputedTs,
	}
}
