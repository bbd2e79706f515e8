package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leafmark/leafmark/store"
)

// EnqueueJobRequest queues an embedding computation for an existing item.
type EnqueueJobRequest struct {
	OwnerID  uuid.UUID `json:"owner_id"`
	ItemType string    `json:"item_type"`
	ItemID   uuid.UUID `json:"item_id"`
	Priority int32     `json:"priority"`
}

// JobResponse is the public view of an embedding job.
type JobResponse struct {
	UID          string    `json:"uid"`
	OwnerID      uuid.UUID `json:"owner_id"`
	ItemType     string    `json:"item_type"`
	ItemID       uuid.UUID `json:"item_id"`
	Status       string    `json:"status"`
	Priority     int32     `json:"priority"`
	RetryCount   int32     `json:"retry_count"`
	MaxRetries   int32     `json:"max_retries"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedTs    int64     `json:"created_ts"`
	StartedTs    int64     `json:"started_ts,omitempty"`
	CompletedTs  int64     `json:"completed_ts,omitempty"`
}

// EnqueueJob queues or re-prioritizes an embedding job.
// POST /api/v1/jobs
func (s *APIV1Service) EnqueueJob(c echo.Context) error {
	ctx := c.Request().Context()
	req := &EnqueueJobRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	job, err := s.Store.EnqueueEmbeddingJob(ctx, req.OwnerID, store.ItemType(req.ItemType), req.ItemID, req.Priority)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.exporter != nil {
		s.exporter.JobEnqueued()
	}
	return c.JSON(http.StatusCreated, toJobResponse(job))
}

// GetJob returns one job by UID.
// GET /api/v1/jobs/:uid
func (s *APIV1Service) GetJob(c echo.Context) error {
	ctx := c.Request().Context()
	job, err := s.Store.GetEmbeddingJobByUID(ctx, c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return c.JSON(http.StatusOK, toJobResponse(job))
}

// ListJobs lists jobs filtered by owner and status.
// GET /api/v1/jobs?owner_id=...&status=...
func (s *APIV1Service) ListJobs(c echo.Context) error {
	ctx := c.Request().Context()
	find := &store.FindEmbeddingJob{}

	if raw := c.QueryParam("owner_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid owner_id")
		}
		find.OwnerID = &ownerID
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := store.JobStatus(raw)
		find.Status = &status
	}

	jobs, err := s.Store.ListEmbeddingJobs(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	response := make([]*JobResponse, 0, len(jobs))
	for _, job := range jobs {
		response = append(response, toJobResponse(job))
	}
	return c.JSON(http.StatusOK, response)
}

func toJobResponse(job *store.EmbeddingJob) *JobResponse {
	return &JobResponse{
		UID:          job.UID,
		OwnerID:      job.OwnerID,
		ItemType:     string(job.ItemType),
		ItemID:       job.ItemID,
		Status:       string(job.Status),
		Priority:     job.Priority,
		RetryCount:   job.RetryCount,
		MaxRetries:   job.MaxRetries,
		ErrorMessage: job.ErrorMessage,
		CreatedTs:    job.CreatedTs,
		StartedTs:    job.StartedTs,
		CompletedTs:  job.CompletedTs,
	}
}
