package search

import (
	"encoding/json"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apartment-portal/internal/models"
)

// batchSize bounds a single document upload
const batchSize = 1000

// SearchClient indexes and queries ranking records in Meilisearch
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

// NewSearchClient creates a client for index, defaulting to "apartments"
func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "apartments"
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "apartment_id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return eris.Wrap(err, "search: create index")
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"apartment_id",
		"building_id",
		"floor_id",
	})
	if err != nil {
		return eris.Wrap(err, "search: searchable attributes")
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"building_id",
		"floor_id",
		"total_size",
		"room_count",
		"quality_rank",
		"size_rank",
	})
	if err != nil {
		return eris.Wrap(err, "search: filterable attributes")
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"quality_rank",
		"size_rank",
		"total_size",
		"quality_score",
	})
	if err != nil {
		return eris.Wrap(err, "search: sortable attributes")
	}

	return nil
}

// IndexRecords uploads ranking records in batches
func (s *SearchClient) IndexRecords(records []models.RankingRecord) error {
	if len(records) == 0 {
		return nil
	}
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if _, err := s.client.Index(s.index).AddDocuments(records[start:end], "apartment_id"); err != nil {
			return eris.Wrapf(err, "search: index records %d-%d", start, end)
		}
	}
	zap.L().Info("search index updated", zap.String("index", s.index), zap.Int("documents", len(records)))
	return nil
}

// SearchResult represents search results
type SearchResult struct {
	Hits           []models.RankingRecord `json:"hits"`
	TotalHits      int64                  `json:"total_hits"`
	ProcessingTime int64                  `json:"processing_time_ms"`
}

// Search runs a filtered search over the indexed ranking records
func (s *SearchClient) Search(params FilterParams) (*SearchResult, error) {
	searchRes, err := s.client.Index(s.index).Search(params.Query, params.Request())
	if err != nil {
		return nil, eris.Wrap(err, "search: query")
	}

	result := &SearchResult{
		Hits:           make([]models.RankingRecord, 0, len(searchRes.Hits)),
		TotalHits:      searchRes.EstimatedTotalHits,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}
	for _, hit := range searchRes.Hits {
		record, err := parseHit(hit)
		if err != nil {
			continue
		}
		result.Hits = append(result.Hits, record)
	}
	return result, nil
}

// parseHit converts a hit to JSON then to a RankingRecord
func parseHit(hit interface{}) (models.RankingRecord, error) {
	var record models.RankingRecord
	hitJSON, err := json.Marshal(hit)
	if err != nil {
		return record, err
	}
	err = json.Unmarshal(hitJSON, &record)
	return record, err
}
