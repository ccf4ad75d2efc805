package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"apartment-portal/internal/dataset"
	"apartment-portal/internal/models"
	"apartment-portal/internal/search"
	"apartment-portal/internal/snapshot"
)

func testSnapshot() *snapshot.Snapshot {
	geometries := dataset.Normalize("geometries", &dataset.RawTable{
		Header: []string{"apartment_id", "building_id", "floor_id", "shape"},
		Records: [][]string{
			{"A1", "1", "1", "p1"},
			{"A2", "1", "2", "p2"},
			{"A3", "2", "1", "p3"},
			{"A1", "1", "1", "p1b"},
		},
	})
	simulations := dataset.Normalize("simulations", &dataset.RawTable{
		Header:  []string{"apartment_id", "daylight"},
		Records: [][]string{{"A1", "0.4"}, {"A2", "0.8"}},
	})
	rankings := dataset.Normalize("apartment_rankings", &dataset.RawTable{
		Header: []string{"apartment_id", "building_id", "floor_id", "size_rank", "quality_rank"},
		Records: [][]string{
			{"A1", "1", "1", "1", "2"},
			{"A2", "1", "2", "3", "1"},
			{"A3", "2", "1", "1", "1"},
			{"C9", "3", "1", "2", "3"},
		},
	})
	return snapshot.New(geometries, simulations, rankings, models.RankPrecomputed)
}

type stubSearcher struct {
	params search.FilterParams
	err    error
}

func (s *stubSearcher) Search(p search.FilterParams) (*search.SearchResult, error) {
	s.params = p
	if s.err != nil {
		return nil, s.err
	}
	return &search.SearchResult{Hits: []models.RankingRecord{{ApartmentID: "A1"}}, TotalHits: 1}, nil
}

type stubAuditor struct {
	report *models.ConsistencyReport
	at     time.Time
}

func (s stubAuditor) LastReport() (*models.ConsistencyReport, time.Time) { return s.report, s.at }

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop(), true), Recovery(zap.NewNop()))
	h.Register(r)
	return r
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func loadedRouter(opts ...Option) *gin.Engine {
	holder := &snapshot.Holder{}
	holder.Store(testSnapshot())
	return newRouter(NewHandler(holder, 5, opts...))
}

func TestNoSnapshotAnswers503(t *testing.T) {
	r := newRouter(NewHandler(&snapshot.Holder{}, 5))

	for _, path := range []string{
		"/health",
		"/api/buildings",
		"/api/floors/1",
		"/api/apartments",
		"/api/apartments/1/1",
		"/api/building/1/1",
		"/api/apartmentDetails/A1",
		"/api/simulationsDetails/A1",
		"/api/apartment-rankings/A1",
		"/api/consistency",
	} {
		assert.Equal(t, http.StatusServiceUnavailable, get(t, r, path).Code, path)
	}
}

func TestHealth(t *testing.T) {
	w := get(t, loadedRouter(), "/health")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	rows := body["rows"].(map[string]any)
	assert.Equal(t, 4.0, rows["geometries"])
	assert.Equal(t, 4.0, rows["rankings"])
}

func TestCatalogEndpoints(t *testing.T) {
	r := loadedRouter()

	assert.Equal(t, []string{"1", "2"}, decode[[]string](t, get(t, r, "/api/buildings")))
	assert.Equal(t, []string{"1", "2"}, decode[[]string](t, get(t, r, "/api/floors/1")))
	assert.Equal(t, []string{}, decode[[]string](t, get(t, r, "/api/floors/9")))
	assert.Equal(t, []string{"A1"}, decode[[]string](t, get(t, r, "/api/apartments/1/1.0")))

	apartments := decode[[]map[string]string](t, get(t, r, "/api/apartments"))
	assert.Equal(t, []map[string]string{
		{"apartment_id": "A1"},
		{"apartment_id": "A2"},
		{"apartment_id": "A3"},
	}, apartments)
}

func TestRowEndpoints(t *testing.T) {
	r := loadedRouter()

	floor := decode[[]map[string]string](t, get(t, r, "/api/building/1/1"))
	require.Len(t, floor, 2)
	assert.Equal(t, "p1", floor[0]["shape"])

	details := decode[[]map[string]string](t, get(t, r, "/api/apartmentDetails/A1"))
	assert.Len(t, details, 2)

	sims := decode[[]map[string]string](t, get(t, r, "/api/simulationsDetails/A2"))
	require.Len(t, sims, 1)
	assert.Equal(t, "0.8", sims[0]["daylight"])

	w := get(t, r, "/api/simulationsDetails/Z1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestApartmentRankings(t *testing.T) {
	r := loadedRouter()

	w := get(t, r, "/api/apartment-rankings/A2")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[models.RankingView](t, w)

	require.NotNil(t, view.Current)
	assert.Equal(t, "A2", view.Current.ApartmentID)
	assert.True(t, view.Current.IsCurrent)
	assert.Equal(t, 4, view.TotalCount)
	assert.Equal(t, "A3", view.AllApartments[0].ApartmentID)
	assert.Equal(t, "A2", view.AllApartments[1].ApartmentID)
	assert.Equal(t, 4, view.AllApartments[0].TotalApartments)
}

func TestApartmentRankings_Unknown(t *testing.T) {
	w := get(t, loadedRouter(), "/api/apartment-rankings/ZZ")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Nil(t, body["current"])
	assert.Equal(t, 4.0, body["total_count"])
}

func TestConsistency(t *testing.T) {
	w := get(t, loadedRouter(), "/api/consistency")

	require.Equal(t, http.StatusOK, w.Code)
	report := decode[models.ConsistencyReport](t, w)
	assert.Equal(t, 1, report.MissingInGeometry)
	assert.Equal(t, []string{"C9"}, report.MissingInGeometryExamples)
	assert.Equal(t, 2, report.MissingInSimulation)
	assert.Zero(t, report.MetadataMismatch)
}

func TestLastAudit(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, get(t, loadedRouter(), "/api/consistency/audit").Code)
	assert.Equal(t, http.StatusNotFound, get(t, loadedRouter(WithAuditor(stubAuditor{})), "/api/consistency/audit").Code)

	auditor := stubAuditor{report: &models.ConsistencyReport{RankingRows: 4}, at: time.Now()}
	w := get(t, loadedRouter(WithAuditor(auditor)), "/api/consistency/audit")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ranking_rows":4`)
}

func TestSearch(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, get(t, loadedRouter(), "/api/search?q=A1").Code)

	searcher := &stubSearcher{}
	w := get(t, loadedRouter(WithSearcher(searcher)),
		"/api/search?q=A1&building_id=1&min_size=40&max_size=abc&sort_by=quality&limit=5&offset=10")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A1", searcher.params.Query)
	assert.Equal(t, "1", searcher.params.BuildingID)
	require.NotNil(t, searcher.params.MinSize)
	assert.Equal(t, 40.0, *searcher.params.MinSize)
	assert.Nil(t, searcher.params.MaxSize)
	assert.Equal(t, "quality", searcher.params.SortBy)
	assert.Equal(t, int64(5), searcher.params.Limit)
	assert.Equal(t, int64(10), searcher.params.Offset)
}

func TestSearch_Errors(t *testing.T) {
	w := get(t, loadedRouter(WithSearcher(&stubSearcher{err: errors.New("boom")})), "/api/search?q=x")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())

	w = get(t, loadedRouter(WithSearcher(&stubSearcher{err: search.ErrUnavailable})), "/api/search?q=x")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(t, loadedRouter(WithSearcher(&stubSearcher{err: &meilisearch.Error{StatusCode: 400}})), "/api/search?building_id=a%5C")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestID(t *testing.T) {
	r := loadedRouter()

	w := get(t, r, "/api/buildings")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/buildings", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := get(t, r, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"kaboom"}`, w.Body.String())
}

func TestAPIMiddlewareAppliesToAPIOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	holder := &snapshot.Holder{}
	holder.Store(testSnapshot())
	r := gin.New()
	NewHandler(holder, 5).Register(r, func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTooManyRequests)
	})

	assert.Equal(t, http.StatusOK, get(t, r, "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, r, "/api/buildings").Code)
}
