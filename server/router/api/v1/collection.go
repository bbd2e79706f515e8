package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leafmark/leafmark/store"
)

// CreateCollectionRequest mirrors a collection from the main application.
type CreateCollectionRequest struct {
	ID      *uuid.UUID `json:"id"`
	OwnerID uuid.UUID  `json:"owner_id"`
	Name    string     `json:"name"`
}

// CollectionResponse is the engine's view of a mirrored collection.
type CollectionResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedTs int64     `json:"created_ts"`
}

// CreateCollection mirrors a collection so the shared-collection signal can
// see it.
// POST /api/v1/collections
func (s *APIV1Service) CreateCollection(c echo.Context) error {
	ctx := c.Request().Context()
	req := &CreateCollectionRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	create := &store.Collection{
		OwnerID: req.OwnerID,
		Name:    req.Name,
	}
	if req.ID != nil {
		create.ID = *req.ID
	}
	collection, err := s.Store.CreateCollection(ctx, create)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, &CollectionResponse{
		ID:        collection.ID,
		OwnerID:   collection.OwnerID,
		Name:      collection.Name,
		CreatedTs: collection.CreatedTs,
	})
}

// AddCollectionItemRequest adds an item to a mirrored collection.
type AddCollectionItemRequest struct {
	ItemID uuid.UUID `json:"item_id"`
}

// AddCollectionItem records a collection membership. Idempotent.
// POST /api/v1/collections/:id/items
func (s *APIV1Service) AddCollectionItem(c echo.Context) error {
	ctx := c.Request().Context()
	collectionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	req := &AddCollectionItemRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.ItemID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "item_id is required")
	}

	if err := s.Store.UpsertCollectionItem(ctx, &store.CollectionItem{
		CollectionID: collectionID,
		ItemID:       req.ItemID,
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SetItemTagsRequest attaches tags to a mirrored item.
type SetItemTagsRequest struct {
	Tags []string `json:"tags"`
}

// SetItemTags records tags for an item. Existing tags stay; adding the same
// tag twice is a no-op.
// POST /api/v1/items/:id/tags
func (s *APIV1Service) SetItemTags(c echo.Context) error {
	ctx := c.Request().Context()
	itemID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	req := &SetItemTagsRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if len(req.Tags) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one tag is required")
	}

	for _, tag := range req.Tags {
		if err := s.Store.UpsertItemTag(ctx, &store.ItemTag{ItemID: itemID, Tag: tag}); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateSeriesRequest mirrors a series from the main application. Items join
// a series through their series_id and series_order fields.
type CreateSeriesRequest struct {
	ID      *uuid.UUID `json:"id"`
	OwnerID uuid.UUID  `json:"owner_id"`
	Name    string     `json:"name"`
}

// SeriesResponse is the engine's view of a mirrored series.
type SeriesResponse struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
}

// CreateSeries mirrors a series for the series-continuation signal.
// POST /api/v1/series
func (s *APIV1Service) CreateSeries(c echo.Context) error {
	ctx := c.Request().Context()
	req := &CreateSeriesRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	create := &store.Series{
		OwnerID: req.OwnerID,
		Name:    req.Name,
	}
	if req.ID != nil {
		create.ID = *req.ID
	}
	series, err := s.Store.CreateSeries(ctx, create)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, &SeriesResponse{
		ID:      series.ID,
		OwnerID: series.OwnerID,
		Name:    series.Name,
	})
}
