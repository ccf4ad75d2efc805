package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"apartment-portal/internal/dataset"
)

// identifierPattern accepts table or schema.table names
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// quoteIdentifier validates a table name and double-quotes each part
func quoteIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", eris.Errorf("database: invalid table name %q", name)
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, "."), nil
}

// scanRows renders every column of every row as a string
func scanRows(rows *sql.Rows) (*dataset.RawTable, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "database: read columns")
	}

	raw := &dataset.RawTable{Header: columns}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "database: scan row")
		}
		record := make([]string, len(columns))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		raw.Records = append(raw.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate rows")
	}
	return raw, nil
}

// formatValue renders a scanned column value the way it would appear in a CSV export
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
