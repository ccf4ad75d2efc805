package models

// MetadataMismatch records an apartment whose building or floor disagrees
// between the rankings and geometry datasets
type MetadataMismatch struct {
	ApartmentID      string `json:"apartment_id"`
	RankingBuilding  string `json:"ranking_building_id"`
	RankingFloor     string `json:"ranking_floor_id"`
	GeometryBuilding string `json:"geometry_building_id"`
	GeometryFloor    string `json:"geometry_floor_id"`
}

// ConsistencyReport summarizes referential integrity between the three datasets
type ConsistencyReport struct {
	RankingRows    int `json:"ranking_rows"`
	GeometryRows   int `json:"geometry_rows"`
	SimulationRows int `json:"simulation_rows"`

	MissingInGeometry   int `json:"missing_in_geometry"`
	MissingInSimulation int `json:"missing_in_simulation"`
	MetadataMismatch    int `json:"metadata_mismatch"`

	// Examples are capped per category to keep the report readable
	MissingInGeometryExamples   []string           `json:"missing_in_geometry_examples"`
	MissingInSimulationExamples []string           `json:"missing_in_simulation_examples"`
	MetadataMismatchExamples    []MetadataMismatch `json:"metadata_mismatch_examples"`
}

// Consistent reports whether no finding was recorded
func (r *ConsistencyReport) Consistent() bool {
	return r.MissingInGeometry == 0 && r.MissingInSimulation == 0 && r.MetadataMismatch == 0
}
