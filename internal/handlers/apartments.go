package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"apartment-portal/internal/models"
	"apartment-portal/internal/search"
	"apartment-portal/internal/snapshot"
)

// Searcher runs full-text queries over ranking records
type Searcher interface {
	Search(params search.FilterParams) (*search.SearchResult, error)
}

// Auditor exposes the result of the scheduled consistency audit
type Auditor interface {
	LastReport() (*models.ConsistencyReport, time.Time)
}

// Handler serves the apartment metadata API from the published snapshot
type Handler struct {
	holder       *snapshot.Holder
	searcher     Searcher
	auditor      Auditor
	exampleLimit int
}

// Option configures optional collaborators of the handler
type Option func(*Handler)

// WithSearcher enables /api/search
func WithSearcher(s Searcher) Option {
	return func(h *Handler) { h.searcher = s }
}

// WithAuditor enables /api/consistency/audit
func WithAuditor(a Auditor) Option {
	return func(h *Handler) { h.auditor = a }
}

// NewHandler creates a new handler reading from holder
func NewHandler(holder *snapshot.Holder, exampleLimit int, opts ...Option) *Handler {
	h := &Handler{holder: holder, exampleLimit: exampleLimit}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route on r. Routes under /api pass through apiMiddleware
func (h *Handler) Register(r gin.IRouter, apiMiddleware ...gin.HandlerFunc) {
	r.GET("/health", h.Health)

	api := r.Group("/api", apiMiddleware...)
	{
		api.GET("/buildings", h.GetBuildings)
		api.GET("/floors/:buildingId", h.GetFloors)
		api.GET("/apartments", h.GetApartments)
		api.GET("/apartments/:buildingId/:floorId", h.GetFloorApartments)
		api.GET("/building/:building/:floor", h.GetFloorGeometries)
		api.GET("/apartmentDetails/:id", h.GetApartmentDetails)
		api.GET("/simulationsDetails/:id", h.GetSimulationDetails)
		api.GET("/apartment-rankings/:id", h.GetApartmentRankings)
		api.GET("/consistency", h.GetConsistency)
		api.GET("/consistency/audit", h.GetLastAudit)
		api.GET("/search", h.Search)
	}
}

// current returns the served snapshot or answers 503
func (h *Handler) current(c *gin.Context) (*snapshot.Snapshot, bool) {
	snap := h.holder.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "datasets not loaded"})
		return nil, false
	}
	return snap, true
}

// Health reports liveness and the size of the served snapshot
func (h *Handler) Health(c *gin.Context) {
	snap := h.holder.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"loaded_at": snap.LoadedAt.UTC().Format(time.RFC3339),
		"rank_mode": snap.RankMode,
		"rows": gin.H{
			"geometries":  snap.Geometries.Len(),
			"simulations": snap.Simulations.Len(),
			"rankings":    len(snap.Records),
		},
		"skipped": gin.H{
			"geometries":  snap.Geometries.Skipped,
			"simulations": snap.Simulations.Skipped,
			"rankings":    snap.Rankings.Skipped + snap.RankingsSkipped,
		},
	})
}

// GetBuildings returns the distinct building ids
func (h *Handler) GetBuildings(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Buildings())
}

// GetFloors returns the floors of one building
func (h *Handler) GetFloors(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Floors(c.Param("buildingId")))
}

// GetApartments returns every apartment id as {"apartment_id": id}
func (h *Handler) GetApartments(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}

	ids := snap.ApartmentIDs()
	apartments := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		apartments = append(apartments, gin.H{"apartment_id": id})
	}
	c.JSON(http.StatusOK, apartments)
}

// GetFloorApartments returns the apartment ids on one floor
func (h *Handler) GetFloorApartments(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.ApartmentsOn(c.Param("buildingId"), c.Param("floorId")))
}

// GetFloorGeometries returns the geometry rows of one floor
func (h *Handler) GetFloorGeometries(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.GeometriesOn(c.Param("building"), c.Param("floor")))
}

// GetApartmentDetails returns the geometry rows of one apartment
func (h *Handler) GetApartmentDetails(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.GeometriesFor(c.Param("id")))
}

// GetSimulationDetails returns the simulation rows of one apartment
func (h *Handler) GetSimulationDetails(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.SimulationsFor(c.Param("id")))
}

// GetApartmentRankings returns the ranking view for one apartment
// An unknown id still answers 200 with current set to null
func (h *Handler) GetApartmentRankings(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.RankingView(c.Param("id")))
}

// GetConsistency cross-checks the served datasets
func (h *Handler) GetConsistency(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Consistency(h.exampleLimit))
}

// GetLastAudit returns the result of the latest scheduled audit
func (h *Handler) GetLastAudit(c *gin.Context) {
	if h.auditor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "consistency audit not enabled"})
		return
	}

	report, ranAt := h.auditor.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audit has run yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ran_at": ranAt.UTC().Format(time.RFC3339),
		"report": report,
	})
}
