// Package consistency cross-checks the rankings table against the geometry
// and simulation tables
package consistency

import (
	"go.uber.org/zap"

	"apartment-portal/internal/dataset"
	"apartment-portal/internal/metrics"
	"apartment-portal/internal/models"
)

// DefaultExampleLimit caps the examples kept per finding category
const DefaultExampleLimit = 5

// Options tunes a check
type Options struct {
	ExampleLimit int
}

type location struct {
	building string
	floor    string
}

// Check compares every rankings row with the first geometry row of the same
// apartment and with the set of simulated apartments. Findings are counted,
// never returned as errors
func Check(rankings, geometries, simulations dataset.Table, opts Options) *models.ConsistencyReport {
	limit := opts.ExampleLimit
	if limit <= 0 {
		limit = DefaultExampleLimit
	}

	report := &models.ConsistencyReport{
		RankingRows:                 rankings.Len(),
		GeometryRows:                geometries.Len(),
		SimulationRows:              simulations.Len(),
		MissingInGeometryExamples:   []string{},
		MissingInSimulationExamples: []string{},
		MetadataMismatchExamples:    []models.MetadataMismatch{},
	}

	// First occurrence wins
	geo := make(map[string]location, geometries.Len())
	for _, g := range geometries.Rows {
		if _, ok := geo[g.ID()]; !ok {
			geo[g.ID()] = location{building: g.Get("building_id"), floor: g.Get("floor_id")}
		}
	}

	simulated := make(map[string]struct{}, simulations.Len())
	for _, s := range simulations.Rows {
		simulated[s.ID()] = struct{}{}
	}

	for _, r := range rankings.Rows {
		id := r.ID()

		if g, ok := geo[id]; !ok {
			report.MissingInGeometry++
			if len(report.MissingInGeometryExamples) < limit {
				report.MissingInGeometryExamples = append(report.MissingInGeometryExamples, id)
			}
		} else if !dataset.LooseEqual(r.Get("building_id"), g.building) || !dataset.LooseEqual(r.Get("floor_id"), g.floor) {
			report.MetadataMismatch++
			if len(report.MetadataMismatchExamples) < limit {
				report.MetadataMismatchExamples = append(report.MetadataMismatchExamples, models.MetadataMismatch{
					ApartmentID:      id,
					RankingBuilding:  r.Get("building_id"),
					RankingFloor:     r.Get("floor_id"),
					GeometryBuilding: g.building,
					GeometryFloor:    g.floor,
				})
			}
		}

		if _, ok := simulated[id]; !ok {
			report.MissingInSimulation++
			if len(report.MissingInSimulationExamples) < limit {
				report.MissingInSimulationExamples = append(report.MissingInSimulationExamples, id)
			}
		}
	}

	metrics.ConsistencyFindings.WithLabelValues("missing_in_geometry").Set(float64(report.MissingInGeometry))
	metrics.ConsistencyFindings.WithLabelValues("missing_in_simulation").Set(float64(report.MissingInSimulation))
	metrics.ConsistencyFindings.WithLabelValues("metadata_mismatch").Set(float64(report.MetadataMismatch))

	return report
}

// Log writes the report summary and its examples
func Log(logger *zap.Logger, report *models.ConsistencyReport) {
	for _, id := range report.MissingInGeometryExamples {
		logger.Info("missing in geometries", zap.String("apartment_id", id))
	}
	for _, m := range report.MetadataMismatchExamples {
		logger.Info("metadata mismatch",
			zap.String("apartment_id", m.ApartmentID),
			zap.String("ranking_building", m.RankingBuilding),
			zap.String("ranking_floor", m.RankingFloor),
			zap.String("geometry_building", m.GeometryBuilding),
			zap.String("geometry_floor", m.GeometryFloor),
		)
	}
	for _, id := range report.MissingInSimulationExamples {
		logger.Info("missing in simulations", zap.String("apartment_id", id))
	}

	logger.Info("consistency check complete",
		zap.Int("rankings", report.RankingRows),
		zap.Int("geometries", report.GeometryRows),
		zap.Int("simulations", report.SimulationRows),
		zap.Int("missing_in_geometry", report.MissingInGeometry),
		zap.Int("missing_in_simulation", report.MissingInSimulation),
		zap.Int("metadata_mismatch", report.MetadataMismatch),
		zap.Bool("consistent", report.Consistent()),
	)
}
