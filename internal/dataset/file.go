package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// FileProvider reads datasets from a directory of CSV or XLSX files
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider rooted at dir
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// Dir returns the data directory
func (p *FileProvider) Dir() string {
	return p.dir
}

// extensions are tried in order when a resource name has none
var extensions = []string{".csv", ".xlsx"}

// Fetch resolves name to <dir>/<name>.csv or <dir>/<name>.xlsx
func (p *FileProvider) Fetch(ctx context.Context, name string) (*RawTable, error) {
	path, err := p.resolve(name)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "file: open %s", path)
	}
	defer f.Close()

	return ReadCSV(ctx, f)
}

func (p *FileProvider) resolve(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", eris.Errorf("file: invalid resource name %q", name)
	}

	candidates := []string{filepath.Join(p.dir, name)}
	if filepath.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range extensions {
			candidates = append(candidates, filepath.Join(p.dir, name+ext))
		}
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", eris.Wrapf(ErrResourceUnavailable, "file not found: %s", candidates[0])
}

// ReadXLSX reads the first sheet of an XLSX workbook; its first row is the header
func ReadXLSX(path string) (*RawTable, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return &RawTable{}, nil
	}

	raw := &RawTable{}
	for i, row := range f.Sheets[0].Rows {
		cells := rowToStrings(row)
		if i == 0 {
			raw.Header = cells
			continue
		}
		if isBlank(cells) {
			continue
		}
		raw.Records = append(raw.Records, cells)
	}
	return raw, nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
