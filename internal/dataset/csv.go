package dataset

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadCSV parses a headed CSV stream. A UTF-8 or UTF-16 byte-order mark is
// consumed before parsing; rows may carry fewer or more fields than the header
func ReadCSV(ctx context.Context, r io.Reader) (*RawTable, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &RawTable{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	raw := &RawTable{Header: header}
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		raw.Records = append(raw.Records, record)
	}
	return raw, nil
}
