package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/leafmark/leafmark/internal/profile"
	"github.com/leafmark/leafmark/store"
	storetest "github.com/leafmark/leafmark/store/test"
)

func newTestServer(ctx context.Context, t *testing.T) (*echo.Echo, *store.Store) {
	ts := storetest.NewTestingStore(ctx, t)
	e := echo.New()
	NewAPIV1Service(&profile.Profile{}, ts, nil).RegisterRoutes(e)
	return e, ts
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCollectionMirroring(t *testing.T) {
	ctx := context.Background()
	e, ts := newTestServer(ctx, t)
	ownerID := uuid.New()

	item, err := ts.CreateItem(ctx, &store.Item{
		OwnerID: ownerID,
		Type:    store.ItemTypeDocument,
		Title:   "Distributed Systems",
	})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPost, "/api/v1/collections",
		`{"owner_id":"`+ownerID.String()+`","name":"Computer Science"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := &CollectionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.Equal(t, "Computer Science", resp.Name)
	require.Equal(t, ownerID, resp.OwnerID)

	rec = doJSON(e, http.MethodPost, "/api/v1/collections/"+resp.ID.String()+"/items",
		`{"item_id":"`+item.ID.String()+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Re-adding the same membership is idempotent.
	rec = doJSON(e, http.MethodPost, "/api/v1/collections/"+resp.ID.String()+"/items",
		`{"item_id":"`+item.ID.String()+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	members, err := ts.ListCollectionItems(ctx, &store.FindCollectionItem{OwnerID: &ownerID})
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, item.ID, members[0].ItemID)
	require.Equal(t, resp.ID, members[0].CollectionID)
}

func TestCollectionMirroringRejectsMissingOwner(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestServer(ctx, t)

	rec := doJSON(e, http.MethodPost, "/api/v1/collections", `{"name":"Orphan"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemTagMirroring(t *testing.T) {
	ctx := context.Background()
	e, ts := newTestServer(ctx, t)
	ownerID := uuid.New()

	item, err := ts.CreateItem(ctx, &store.Item{
		OwnerID: ownerID,
		Type:    store.ItemTypeNote,
		Title:   "Raft notes",
	})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPost, "/api/v1/items/"+item.ID.String()+"/tags",
		`{"tags":["consensus","go"]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Repeating a tag does not duplicate it.
	rec = doJSON(e, http.MethodPost, "/api/v1/items/"+item.ID.String()+"/tags",
		`{"tags":["consensus"]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	tags, err := ts.ListItemTags(ctx, &store.FindItemTag{ItemID: &item.ID})
	require.NoError(t, err)
	require.Len(t, tags, 2)

	rec = doJSON(e, http.MethodPost, "/api/v1/items/"+item.ID.String()+"/tags", `{"tags":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeriesMirroring(t *testing.T) {
	ctx := context.Background()
	e, ts := newTestServer(ctx, t)
	ownerID := uuid.New()

	rec := doJSON(e, http.MethodPost, "/api/v1/series",
		`{"owner_id":"`+ownerID.String()+`","name":"The Expanse"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := &SeriesResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	require.Equal(t, "The Expanse", resp.Name)

	listed, err := ts.ListSeries(ctx, &store.FindSeries{OwnerID: &ownerID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, resp.ID, listed[0].ID)
}
