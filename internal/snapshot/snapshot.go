package snapshot

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apartment-portal/internal/consistency"
	"apartment-portal/internal/dataset"
	"apartment-portal/internal/metrics"
	"apartment-portal/internal/models"
	"apartment-portal/internal/ranking"
)

// Names maps each dataset to its resource name in the provider
type Names struct {
	Geometries  string
	Simulations string
	Rankings    string
}

// Snapshot is a fully loaded, read-only view of the three datasets
// Nothing mutates a Snapshot after New returns
type Snapshot struct {
	Geometries  dataset.Table
	Simulations dataset.Table
	Rankings    dataset.Table

	// Records are the parsed rankings, ordered by (quality_rank, size_rank)
	Records         []models.RankingRecord
	RankingsSkipped int
	RankMode        models.RankMode
	LoadedAt        time.Time

	geometriesByID  map[string][]int
	simulationsByID map[string][]int
}

// New indexes already loaded tables and parses the rankings
func New(geometries, simulations, rankings dataset.Table, mode models.RankMode) *Snapshot {
	parsed := ranking.ParseRecords(rankings, mode)
	ranking.SortByRank(parsed.Records)

	return &Snapshot{
		Geometries:      geometries,
		Simulations:     simulations,
		Rankings:        rankings,
		Records:         parsed.Records,
		RankingsSkipped: parsed.Skipped,
		RankMode:        mode,
		LoadedAt:        time.Now(),
		geometriesByID:  indexByID(geometries),
		simulationsByID: indexByID(simulations),
	}
}

// Build loads the three datasets concurrently and returns the snapshot only
// once every load has completed
func Build(ctx context.Context, loader *dataset.Loader, names Names, mode models.RankMode) (*Snapshot, error) {
	start := time.Now()
	tables, err := loader.LoadAll(ctx, names.Geometries, names.Simulations, names.Rankings)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: load datasets")
	}

	snap := New(tables[0], tables[1], tables[2], mode)
	zap.L().Info("snapshot built",
		zap.Int("geometries", snap.Geometries.Len()),
		zap.Int("simulations", snap.Simulations.Len()),
		zap.Int("rankings", len(snap.Records)),
		zap.Int("rankings_skipped", snap.RankingsSkipped),
		zap.String("rank_mode", string(mode)),
		zap.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

func indexByID(t dataset.Table) map[string][]int {
	idx := make(map[string][]int, t.Len())
	for i, row := range t.Rows {
		idx[row.ID()] = append(idx[row.ID()], i)
	}
	return idx
}

// Holder publishes snapshots to concurrent readers. A stored snapshot is
// replaced as a whole, readers never see a partially loaded one
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// Store publishes snap
func (h *Holder) Store(snap *Snapshot) {
	h.current.Store(snap)
	metrics.SnapshotLoadedAt.Set(float64(snap.LoadedAt.Unix()))
}

// Current returns the published snapshot, or nil before the first load
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// RankingView returns the comparative ranking for apartmentID
func (s *Snapshot) RankingView(apartmentID string) models.RankingView {
	return ranking.ComputeView(s.Records, apartmentID)
}

// Consistency cross-checks the loaded tables
func (s *Snapshot) Consistency(exampleLimit int) *models.ConsistencyReport {
	return consistency.Check(s.Rankings, s.Geometries, s.Simulations, consistency.Options{ExampleLimit: exampleLimit})
}

// Buildings returns the distinct non-empty building ids of the geometry table.
// Ids that compare loosely equal ("1", "01") are listed once, first spelling wins
func (s *Snapshot) Buildings() []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, g := range s.Geometries.Rows {
		b := g.Get("building_id")
		if b == "" {
			continue
		}
		if key := dataset.LooseKey(b); !seenBefore(seen, key) {
			ids = append(ids, b)
		}
	}
	return sortLoose(ids)
}

// Floors returns the distinct floor ids of a building
func (s *Snapshot) Floors(building string) []string {
	var floors []string
	seen := map[string]struct{}{}
	for _, g := range s.Geometries.Rows {
		if !dataset.LooseEqual(g.Get("building_id"), building) {
			continue
		}
		f := g.Get("floor_id")
		if !seenBefore(seen, dataset.LooseKey(f)) {
			floors = append(floors, f)
		}
	}
	return sortLoose(floors)
}

// ApartmentsOn returns the distinct apartment ids of one floor, sorted
func (s *Snapshot) ApartmentsOn(building, floor string) []string {
	ids := []string{}
	seen := map[string]struct{}{}
	for _, g := range s.GeometriesOn(building, floor) {
		if _, ok := seen[g.ID()]; !ok {
			seen[g.ID()] = struct{}{}
			ids = append(ids, g.ID())
		}
	}
	sort.Strings(ids)
	return ids
}

// ApartmentIDs returns every distinct apartment id in first-seen order
func (s *Snapshot) ApartmentIDs() []string {
	ids := []string{}
	seen := map[string]struct{}{}
	for _, g := range s.Geometries.Rows {
		if _, ok := seen[g.ID()]; !ok {
			seen[g.ID()] = struct{}{}
			ids = append(ids, g.ID())
		}
	}
	return ids
}

// GeometriesOn returns the geometry rows of one floor
func (s *Snapshot) GeometriesOn(building, floor string) []dataset.Row {
	rows := []dataset.Row{}
	for _, g := range s.Geometries.Rows {
		if dataset.LooseEqual(g.Get("building_id"), building) && dataset.LooseEqual(g.Get("floor_id"), floor) {
			rows = append(rows, g)
		}
	}
	return rows
}

// GeometriesFor returns all geometry rows of an apartment
func (s *Snapshot) GeometriesFor(apartmentID string) []dataset.Row {
	return pick(s.Geometries, s.geometriesByID, apartmentID)
}

// SimulationsFor returns all simulation rows of an apartment
func (s *Snapshot) SimulationsFor(apartmentID string) []dataset.Row {
	return pick(s.Simulations, s.simulationsByID, apartmentID)
}

func pick(t dataset.Table, idx map[string][]int, id string) []dataset.Row {
	positions := idx[strings.TrimSpace(id)]
	rows := make([]dataset.Row, 0, len(positions))
	for _, i := range positions {
		rows = append(rows, t.Rows[i])
	}
	return rows
}

// seenBefore reports whether key was already recorded and records it
func seenBefore(seen map[string]struct{}, key string) bool {
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}
	return false
}

func sortLoose(values []string) []string {
	if values == nil {
		return []string{}
	}
	sort.SliceStable(values, func(i, j int) bool {
		return dataset.CompareLoose(values[i], values[j]) < 0
	})
	return values
}
