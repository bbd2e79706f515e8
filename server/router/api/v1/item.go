package v1

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leafmark/leafmark/store"
)

// CreateItemRequest mirrors one content item from the main application.
type CreateItemRequest struct {
	ID          *uuid.UUID `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Progress    float64    `json:"progress"`
	SeriesID    *uuid.UUID `json:"series_id"`
	SeriesOrder *int32     `json:"series_order"`
	// Priority of the embedding job queued for this item; 0 uses the
	// default.
	Priority int32 `json:"priority"`
}

// ItemResponse is the engine's view of a mirrored item.
type ItemResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Progress  float64   `json:"progress"`
	JobUID    string    `json:"job_uid,omitempty"`
	CreatedTs int64     `json:"created_ts"`
}

// CreateItem mirrors an item and queues its embedding computation.
// POST /api/v1/items
func (s *APIV1Service) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()
	req := &CreateItemRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	create := &store.Item{
		OwnerID:     req.OwnerID,
		Type:        store.ItemType(req.Type),
		Title:       req.Title,
		Content:     req.Content,
		Progress:    req.Progress,
		SeriesID:    req.SeriesID,
		SeriesOrder: req.SeriesOrder,
	}
	if req.ID != nil {
		create.ID = *req.ID
	}
	item, err := s.Store.CreateItem(ctx, create)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	job, err := s.Store.EnqueueEmbeddingJob(ctx, item.OwnerID, item.Type, item.ID, req.Priority)
	if err != nil {
		// The mirrored item is in place; the embedding can be queued again
		// later.
		slog.Error("failed to enqueue embedding job", "item", item.ID.String(), "error", err)
		return c.JSON(http.StatusCreated, toItemResponse(item, ""))
	}
	if s.exporter != nil {
		s.exporter.JobEnqueued()
	}

	return c.JSON(http.StatusCreated, toItemResponse(item, job.UID))
}

// UpdateItemRequest carries a partial item update.
type UpdateItemRequest struct {
	Title       *string    `json:"title"`
	Content     *string    `json:"content"`
	Progress    *float64   `json:"progress"`
	SeriesID    *uuid.UUID `json:"series_id"`
	SeriesOrder *int32     `json:"series_order"`
	Priority    int32      `json:"priority"`
}

// UpdateItem applies a partial update; a content or title change queues a
// fresh embedding job.
// PATCH /api/v1/items/:id
func (s *APIV1Service) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	req := &UpdateItemRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	item, err := s.Store.GetItem(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if item == nil {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}

	if err := s.Store.UpdateItem(ctx, &store.UpdateItem{
		ID:          id,
		Title:       req.Title,
		Content:     req.Content,
		Progress:    req.Progress,
		SeriesID:    req.SeriesID,
		SeriesOrder: req.SeriesOrder,
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	jobUID := ""
	if req.Title != nil || req.Content != nil {
		job, err := s.Store.EnqueueEmbeddingJob(ctx, item.OwnerID, item.Type, item.ID, req.Priority)
		if err != nil {
			slog.Error("failed to enqueue embedding job", "item", item.ID.String(), "error", err)
		} else {
			jobUID = job.UID
			if s.exporter != nil {
				s.exporter.JobEnqueued()
			}
		}
	}

	updated, err := s.Store.GetItem(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toItemResponse(updated, jobUID))
}

// DeleteItem removes an item with its embedding and relations.
// DELETE /api/v1/items/:id
func (s *APIV1Service) DeleteItem(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Store.DeleteItem(ctx, &store.DeleteItem{ID: id}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RelationResponse is one edge of the similarity graph.
type RelationResponse struct {
	RelatedItemID uuid.UUID `json:"related_item_id"`
	Label         string    `json:"label"`
	Strength      float64   `json:"strength"`
	UpdatedTs     int64     `json:"updated_ts"`
}

// GetItemRelations lists the similarity edges of one item, strongest first.
// GET /api/v1/items/:id/relations
func (s *APIV1Service) GetItemRelations(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	relations, err := s.Store.ListItemRelations(ctx, &store.FindItemRelation{SourceItemID: &id})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	response := make([]*RelationResponse, 0, len(relations))
	for _, relation := range relations {
		response = append(response, &RelationResponse{
			RelatedItemID: relation.RelatedItemID,
			Label:         string(relation.Label),
			Strength:      relation.Strength,
			UpdatedTs:     relation.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, response)
}

func toItemResponse(item *store.Item, jobUID string) *ItemResponse {
	return &ItemResponse{
		ID:        item.ID,
		OwnerID:   item.OwnerID,
		Type:      string(item.Type),
		Title:     item.Title,
		Progress:  item.Progress,
		JobUID:    jobUID,
		CreatedTs: item.CreatedTs,
	}
}
