package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"apartment-portal/internal/search"
)

// Search queries the Meilisearch index of ranking records
func (h *Handler) Search(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search not enabled"})
		return
	}

	params := ParseFilterParams(c)
	result, err := h.searcher.Search(params)
	if errors.Is(err, search.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if search.IsClientError(err) {
		zap.L().Warn("search rejected", zap.String("query", params.Query), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		zap.L().Error("search failed", zap.String("query", params.Query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ParseFilterParams reads search parameters from the query string
// Unparseable numbers are ignored
func ParseFilterParams(c *gin.Context) search.FilterParams {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil {
		limit = 20
	}
	offset, err := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if err != nil || offset < 0 {
		offset = 0
	}

	return search.FilterParams{
		Query:      c.Query("q"),
		BuildingID: c.Query("building_id"),
		FloorID:    c.Query("floor_id"),
		MinSize:    queryFloat(c, "min_size"),
		MaxSize:    queryFloat(c, "max_size"),
		MinRooms:   queryFloat(c, "min_rooms"),
		SortBy:     c.Query("sort_by"),
		Limit:      limit,
		Offset:     offset,
	}
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
