// Package dataset loads the geometry, simulation and ranking tables from a
// resource provider into ordered, read-only in-memory tables
package dataset

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"apartment-portal/internal/metrics"
)

// KeyField is the join key shared by all three datasets
const KeyField = "apartment_id"

// ErrResourceUnavailable is returned when a named dataset cannot be located
var ErrResourceUnavailable = errors.New("resource unavailable")

// Row maps a normalized column name to its trimmed cell value
type Row map[string]string

// Get returns the value of field, or "" when the row does not carry it
func (r Row) Get(field string) string {
	return r[field]
}

// ID returns the apartment identifier of the row
func (r Row) ID() string {
	return r[KeyField]
}

// Table is an ordered sequence of rows as read from one resource
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"-"`
	// Skipped counts malformed rows dropped while loading
	Skipped int `json:"skipped"`
}

// Len returns the number of loaded rows
func (t Table) Len() int {
	return len(t.Rows)
}

// RawTable is what providers hand back: a header and the records under it, unnormalized
type RawTable struct {
	Header  []string
	Records [][]string
}

// Provider resolves a resource name to its raw tabular content
// Implementations wrap ErrResourceUnavailable when the resource does not exist
type Provider interface {
	Fetch(ctx context.Context, name string) (*RawTable, error)
}

// MissingPolicy decides what happens when a provider reports ErrResourceUnavailable
type MissingPolicy string

const (
	// MissingDegrade turns a missing resource into an empty table
	MissingDegrade MissingPolicy = "degrade"
	// MissingFatal propagates the error and aborts the load
	MissingFatal MissingPolicy = "fatal"
)

// ParseMissingPolicy maps a config value to a policy, defaulting to degrade
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MissingDegrade):
		return MissingDegrade, nil
	case string(MissingFatal):
		return MissingFatal, nil
	default:
		return "", eris.Errorf("dataset: unknown missing policy %q", s)
	}
}

// Loader turns provider output into normalized tables
type Loader struct {
	provider Provider
	policy   MissingPolicy
}

// NewLoader creates a loader reading from provider with the given missing-resource policy
func NewLoader(provider Provider, policy MissingPolicy) *Loader {
	if policy == "" {
		policy = MissingDegrade
	}
	return &Loader{provider: provider, policy: policy}
}

// Policy reports the loader's missing-resource policy
func (l *Loader) Policy() MissingPolicy {
	return l.policy
}

// Load reads one resource. Header names are trimmed and stripped of a leading
// byte-order mark, cell values are trimmed and rows without an apartment_id are skipped
func (l *Loader) Load(ctx context.Context, name string) (Table, error) {
	raw, err := l.provider.Fetch(ctx, name)
	if err != nil {
		if errors.Is(err, ErrResourceUnavailable) && l.policy == MissingDegrade {
			zap.L().Warn("dataset missing, continuing with empty table",
				zap.String("resource", name),
				zap.Error(err),
			)
			return Table{Name: name, Rows: []Row{}}, nil
		}
		return Table{}, eris.Wrapf(err, "dataset: load %s", name)
	}

	table := Normalize(name, raw)
	metrics.RowsLoaded.WithLabelValues(name).Add(float64(table.Len()))
	if table.Skipped > 0 {
		metrics.RowsSkipped.WithLabelValues(name, "missing_key").Add(float64(table.Skipped))
		zap.L().Warn("skipped malformed rows",
			zap.String("resource", name),
			zap.Int("skipped", table.Skipped),
			zap.String("reason", "missing "+KeyField),
		)
	}
	zap.L().Info("dataset loaded",
		zap.String("resource", name),
		zap.Int("rows", table.Len()),
	)
	return table, nil
}

// LoadAll reads every named resource concurrently and returns the tables in
// the order the names were given. Nothing is returned until all loads finish
func (l *Loader) LoadAll(ctx context.Context, names ...string) ([]Table, error) {
	tables := make([]Table, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			t, err := l.Load(gctx, name)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Normalize converts a raw table into rows keyed by normalized header names
func Normalize(name string, raw *RawTable) Table {
	table := Table{Name: name, Rows: []Row{}}
	if raw == nil {
		return table
	}

	header := make([]string, len(raw.Header))
	for i, h := range raw.Header {
		header[i] = NormalizeHeader(h)
		if header[i] != "" {
			table.Columns = append(table.Columns, header[i])
		}
	}

	for _, record := range raw.Records {
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" || i >= len(record) {
				continue
			}
			row[col] = strings.TrimSpace(record[i])
		}
		if row.ID() == "" {
			table.Skipped++
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// NormalizeHeader trims whitespace and a leading U+FEFF from a column name
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.TrimSpace(h)
}
