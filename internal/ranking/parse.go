package ranking

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apartment-portal/internal/dataset"
	"apartment-portal/internal/metrics"
	"apartment-portal/internal/models"
)

// Rankings table columns
const (
	ColBuildingID      = "building_id"
	ColFloorID         = "floor_id"
	ColTotalSize       = "total_size"
	ColRoomCount       = "room_count"
	ColQualityScore    = "quality_score"
	ColSizeRank        = "size_rank"
	ColQualityRank     = "quality_rank"
	ColTotalApartments = "total_apartments"
)

// ParseResult holds the typed records and what was dropped on the way
type ParseResult struct {
	Records []models.RankingRecord
	Skipped int
	// Reasons counts skipped rows per reason
	Reasons map[string]int
}

// ParseRankMode maps a config value to a rank mode, defaulting to precomputed
func ParseRankMode(s string) (models.RankMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(models.RankPrecomputed):
		return models.RankPrecomputed, nil
	case string(models.RankComputed):
		return models.RankComputed, nil
	default:
		return "", eris.Errorf("ranking: unknown rank mode %q", s)
	}
}

// ParseRecords converts rankings rows into typed records. Rows with unparseable
// numbers, missing ranks (precomputed mode) or missing size/score (computed
// mode), and repeated apartment ids are skipped and counted. total_apartments
// is set to the number of records kept
func ParseRecords(table dataset.Table, mode models.RankMode) ParseResult {
	result := ParseResult{
		Records: make([]models.RankingRecord, 0, table.Len()),
		Reasons: map[string]int{},
	}
	seen := make(map[string]struct{}, table.Len())
	sourceTotals := map[int]struct{}{}

	for _, row := range table.Rows {
		rec, reason := parseRow(row, mode)
		if reason == "" {
			if _, dup := seen[rec.ApartmentID]; dup {
				reason = "duplicate_id"
			}
		}
		if reason != "" {
			result.Skipped++
			result.Reasons[reason]++
			continue
		}
		seen[rec.ApartmentID] = struct{}{}

		if total, ok := parseInt(row.Get(ColTotalApartments)); ok {
			sourceTotals[total] = struct{}{}
		}
		result.Records = append(result.Records, rec)
	}

	if mode == models.RankComputed {
		AssignRanks(result.Records)
	}
	for i := range result.Records {
		result.Records[i].TotalApartments = len(result.Records)
	}
	sourceTotalMismatch := false
	for total := range sourceTotals {
		if total != len(result.Records) {
			sourceTotalMismatch = true
		}
	}

	for reason, n := range result.Reasons {
		metrics.RowsSkipped.WithLabelValues(table.Name, reason).Add(float64(n))
		zap.L().Warn("skipped malformed ranking rows",
			zap.String("resource", table.Name),
			zap.String("reason", reason),
			zap.Int("skipped", n),
		)
	}
	if sourceTotalMismatch {
		zap.L().Warn("total_apartments in source disagrees with row count, using row count",
			zap.String("resource", table.Name),
			zap.Int("total_apartments", len(result.Records)),
		)
	}
	return result
}

func parseRow(row dataset.Row, mode models.RankMode) (models.RankingRecord, string) {
	rec := models.RankingRecord{
		ApartmentID: strings.TrimSpace(row.ID()),
		BuildingID:  row.Get(ColBuildingID),
		FloorID:     row.Get(ColFloorID),
	}
	if rec.ApartmentID == "" {
		return rec, "missing_key"
	}

	var ok bool
	required := mode == models.RankComputed
	if rec.TotalSize, ok = parseOptionalFloat(row.Get(ColTotalSize), required); !ok {
		return rec, "invalid_total_size"
	}
	if rec.QualityScore, ok = parseOptionalFloat(row.Get(ColQualityScore), required); !ok {
		return rec, "invalid_quality_score"
	}
	if rec.RoomCount, ok = parseOptionalFloat(row.Get(ColRoomCount), false); !ok {
		return rec, "invalid_room_count"
	}

	if mode == models.RankComputed {
		return rec, ""
	}

	if rec.SizeRank, ok = parseRank(row.Get(ColSizeRank)); !ok {
		return rec, "invalid_size_rank"
	}
	if rec.QualityRank, ok = parseRank(row.Get(ColQualityRank)); !ok {
		return rec, "invalid_quality_rank"
	}
	return rec, ""
}

// parseOptionalFloat accepts an empty value as zero unless required
func parseOptionalFloat(s string, required bool) (float64, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, !required
	}
	return dataset.ParseNumber(s)
}

// parseInt accepts integral decimals such as "3" or "3.0"
func parseInt(s string) (int, bool) {
	f, ok := dataset.ParseNumber(s)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func parseRank(s string) (int, bool) {
	n, ok := parseInt(s)
	if !ok || n < 1 {
		return 0, false
	}
	return n, true
}
