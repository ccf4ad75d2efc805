package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meilisearch/meilisearch-go"
)

// sortFields are the accepted sort parameters
var sortFields = map[string]string{
	"quality":    "quality_rank:asc",
	"size":       "size_rank:asc",
	"total_size": "total_size:desc",
}

// FilterParams are the search query, filters and paging of /api/search
type FilterParams struct {
	Query      string
	BuildingID string
	FloorID    string
	MinSize    *float64
	MaxSize    *float64
	MinRooms   *float64
	SortBy     string
	Limit      int64
	Offset     int64
}

// Filters builds the meilisearch filter expressions for the params
func (p FilterParams) Filters() []string {
	var filters []string

	if p.BuildingID != "" {
		filters = append(filters, fmt.Sprintf("building_id = %s", quote(p.BuildingID)))
	}
	if p.FloorID != "" {
		filters = append(filters, fmt.Sprintf("floor_id = %s", quote(p.FloorID)))
	}

	// Size range filter
	if p.MinSize != nil {
		filters = append(filters, "total_size >= "+formatFloat(*p.MinSize))
	}
	if p.MaxSize != nil {
		filters = append(filters, "total_size <= "+formatFloat(*p.MaxSize))
	}
	if p.MinRooms != nil {
		filters = append(filters, "room_count >= "+formatFloat(*p.MinRooms))
	}

	return filters
}

// Request converts the params into a meilisearch request
func (p FilterParams) Request() *meilisearch.SearchRequest {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	req := &meilisearch.SearchRequest{
		Limit:  limit,
		Offset: p.Offset,
	}

	if filters := p.Filters(); len(filters) > 0 {
		req.Filter = strings.Join(filters, " AND ")
	}

	if sort, ok := sortFields[p.SortBy]; ok {
		req.Sort = []string{sort}
	}

	return req
}

// filterEscaper escapes backslashes and double quotes in filter values
var filterEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote wraps a filter value in double quotes
func quote(v string) string {
	return `"` + filterEscaper.Replace(v) + `"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
