package models

// RankingRecord is one row of the apartment rankings table
type RankingRecord struct {
	ApartmentID     string  `json:"apartment_id"`
	BuildingID      string  `json:"building_id"`
	FloorID         string  `json:"floor_id"`
	TotalSize       float64 `json:"total_size"`
	RoomCount       float64 `json:"room_count"`
	QualityScore    float64 `json:"quality_score"`
	SizeRank        int     `json:"size_rank"`
	QualityRank     int     `json:"quality_rank"`
	TotalApartments int     `json:"total_apartments"`
	IsCurrent       bool    `json:"is_current"`
}

// RankingView is the comparative ranking of all apartments relative to one target
type RankingView struct {
	Current       *RankingRecord  `json:"current"`
	AllApartments []RankingRecord `json:"all_apartments"`
	TotalCount    int             `json:"total_count"`
}

// RankMode selects where size_rank and quality_rank come from
type RankMode string

const (
	// RankPrecomputed reads ranks from the source table
	RankPrecomputed RankMode = "precomputed"
	// RankComputed derives ranks from total_size and quality_score
	RankComputed RankMode = "computed"
)
