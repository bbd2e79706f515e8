// Package v1 exposes the engine's HTTP API: item mirroring, job queue
// control, relationship queries, recommendations, and interest profiles.
package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leafmark/leafmark/internal/profile"
	"github.com/leafmark/leafmark/plugin/ai/interest"
	"github.com/leafmark/leafmark/plugin/ai/recommend"
	"github.com/leafmark/leafmark/plugin/ai/relation"
	"github.com/leafmark/leafmark/server/metrics"
	"github.com/leafmark/leafmark/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	Discoverer  *relation.Discoverer
	Recommender *recommend.Recommender
	Interest    *interest.Aggregator

	exporter *metrics.Exporter
}

func NewAPIV1Service(p *profile.Profile, s *store.Store, exporter *metrics.Exporter) *APIV1Service {
	return &APIV1Service{
		Profile:     p,
		Store:       s,
		Discoverer:  relation.NewDiscoverer(s),
		Recommender: recommend.NewRecommender(s),
		Interest:    interest.NewAggregator(s),
		exporter:    exporter,
	}
}

// RegisterRoutes registers all v1 routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	g := echoServer.Group("/api/v1")

	g.POST("/items", s.CreateItem)
	g.PATCH("/items/:id", s.UpdateItem)
	g.DELETE("/items/:id", s.DeleteItem)
	g.GET("/items/:id/relations", s.GetItemRelations)
	g.POST("/items/:id/tags", s.SetItemTags)

	g.POST("/collections", s.CreateCollection)
	g.POST("/collections/:id/items", s.AddCollectionItem)
	g.POST("/series", s.CreateSeries)

	g.POST("/jobs", s.EnqueueJob)
	g.GET("/jobs", s.ListJobs)
	g.GET("/jobs/:uid", s.GetJob)

	g.POST("/owners/:ownerId/backfill", s.BackfillRelations)
	g.GET("/owners/:ownerId/recommendations", s.GetRecommendations)
	g.GET("/owners/:ownerId/profile", s.GetInterestProfile)
	g.POST("/owners/:ownerId/profile/recompute", s.RecomputeInterestProfile)
	g.GET("/owners/:ownerId/similar-owners", s.GetSimilarOwners)
}

// parseUUIDParam parses a path parameter as a UUID and replies 400 on
// malformed input.
func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
