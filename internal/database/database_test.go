package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartment-portal/internal/config"
	"apartment-portal/internal/dataset"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "apartments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Conn().Exec(`
		CREATE TABLE geometries (apartment_id TEXT, building_id INTEGER, floor_id INTEGER, area REAL, shape TEXT);
		INSERT INTO geometries VALUES ('A1', 1, 2, 50.5, 'poly'), (' A2 ', 1, 3, 70, NULL), ('', 1, 3, 10, 'x');
	`)
	require.NoError(t, err)
	return db
}

func TestDB_FetchSQLite(t *testing.T) {
	db := openSQLite(t)

	raw, err := db.Fetch(context.Background(), "geometries")

	require.NoError(t, err)
	assert.Equal(t, []string{"apartment_id", "building_id", "floor_id", "area", "shape"}, raw.Header)
	require.Len(t, raw.Records, 3)
	assert.Equal(t, []string{"A1", "1", "2", "50.5", "poly"}, raw.Records[0])
	assert.Equal(t, "", raw.Records[1][4])
}

func TestDB_LoadThroughLoader(t *testing.T) {
	db := openSQLite(t)

	table, err := dataset.NewLoader(db, dataset.MissingFatal).Load(context.Background(), "geometries")

	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 1, table.Skipped)
	assert.Equal(t, "A2", table.Rows[1].ID())
}

func TestDB_MissingTable(t *testing.T) {
	db := openSQLite(t)

	_, err := db.Fetch(context.Background(), "simulations")

	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrResourceUnavailable))
}

func TestDB_InvalidName(t *testing.T) {
	db := openSQLite(t)

	_, err := db.Fetch(context.Background(), "geometries; DROP TABLE geometries")

	require.Error(t, err)
	assert.False(t, errors.Is(err, dataset.ErrResourceUnavailable))
}

func TestGormDB_InvalidName(t *testing.T) {
	gdb := NewGormDBFromDB(nil)

	_, err := gdb.Fetch(context.Background(), "rankings`")

	require.Error(t, err)
	assert.False(t, errors.Is(err, dataset.ErrResourceUnavailable))
}

func TestQuoteIdentifier(t *testing.T) {
	q, err := quoteIdentifier("apartment_rankings")
	require.NoError(t, err)
	assert.Equal(t, `"apartment_rankings"`, q)

	q, err = quoteIdentifier("public.geometries")
	require.NoError(t, err)
	assert.Equal(t, `"public"."geometries"`, q)

	for _, bad := range []string{"", "1table", "a-b", `a"b`, "a.b.c", "a b"} {
		_, err := quoteIdentifier(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "abc", formatValue([]byte("abc")))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, "1.5", formatValue(1.5))
	assert.Equal(t, "70", formatValue(70.0))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, "2024-05-01T12:00:00Z", formatValue(ts))
}

func TestOpenSource_FilesAndSQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Data.Dir = t.TempDir()

	src, err := OpenSource(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "files", src.Kind)
	assert.NoError(t, src.Close())

	cfg.Data.Source = "SQLite"
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "data.db")
	src, err = OpenSource(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", src.Kind)

	_, err = src.Fetch(context.Background(), "geometries")
	assert.True(t, errors.Is(err, dataset.ErrResourceUnavailable))
	assert.NoError(t, src.Close())
}

func TestOpenSource_Unknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Data.Source = "ftp"

	_, err := OpenSource(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenSource_S3RequiresBucket(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Data.Source = "s3"
	cfg.S3.Bucket = ""

	_, err := OpenSource(context.Background(), cfg)
	assert.Error(t, err)
}
