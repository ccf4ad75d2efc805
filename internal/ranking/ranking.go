// Package ranking orders apartments by quality and size rank and flags the
// apartment a caller is looking at
package ranking

import (
	"cmp"
	"slices"
	"sort"
	"strings"

	"apartment-portal/internal/models"
)

// ComputeView returns every record ordered by (quality_rank, size_rank) with
// the record whose apartment_id equals targetID flagged as current. Records
// that tie on both ranks keep their input order. The input is not modified
func ComputeView(records []models.RankingRecord, targetID string) models.RankingView {
	target := strings.TrimSpace(targetID)

	all := make([]models.RankingRecord, len(records))
	copy(all, records)
	for i := range all {
		all[i].IsCurrent = target != "" && all[i].ApartmentID == target
	}
	SortByRank(all)

	view := models.RankingView{
		AllApartments: all,
		TotalCount:    len(all),
	}
	for i := range all {
		if all[i].IsCurrent {
			current := all[i]
			view.Current = &current
			break
		}
	}
	return view
}

// SortByRank stable-sorts records by quality_rank, then size_rank, ascending
func SortByRank(records []models.RankingRecord) {
	slices.SortStableFunc(records, CompareRank)
}

// CompareRank orders two records by quality_rank, then size_rank
func CompareRank(a, b models.RankingRecord) int {
	if c := cmp.Compare(a.QualityRank, b.QualityRank); c != 0 {
		return c
	}
	return cmp.Compare(a.SizeRank, b.SizeRank)
}

// DenseRank ranks values in descending order with RANK() semantics: a value's
// rank is one plus the number of values strictly greater than it, so ties
// share a rank and the next distinct value skips ahead by the tie group size
func DenseRank(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return values[order[i]] > values[order[j]]
	})

	ranks := make([]int, len(values))
	for pos, idx := range order {
		if pos > 0 && values[idx] == values[order[pos-1]] {
			ranks[idx] = ranks[order[pos-1]]
			continue
		}
		ranks[idx] = pos + 1
	}
	return ranks
}

// AssignRanks recomputes size_rank from total_size and quality_rank from
// quality_score for every record
func AssignRanks(records []models.RankingRecord) {
	sizes := make([]float64, len(records))
	scores := make([]float64, len(records))
	for i, r := range records {
		sizes[i] = r.TotalSize
		scores[i] = r.QualityScore
	}

	sizeRanks := DenseRank(sizes)
	qualityRanks := DenseRank(scores)
	for i := range records {
		records[i].SizeRank = sizeRanks[i]
		records[i].QualityRank = qualityRanks[i]
	}
}
