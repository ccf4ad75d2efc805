package dataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func TestReadCSV(t *testing.T) {
	input := "apartment_id,building_id,floor_id\nA1,1,2\n\"A,2\",1,3\n"

	raw, err := ReadCSV(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"apartment_id", "building_id", "floor_id"}, raw.Header)
	require.Len(t, raw.Records, 2)
	assert.Equal(t, []string{"A,2", "1", "3"}, raw.Records[1])
}

func TestReadCSV_StripsUTF8BOM(t *testing.T) {
	input := "\xEF\xBB\xBFapartment_id,building_id\nA1,1\n"

	raw, err := ReadCSV(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, "apartment_id", raw.Header[0])
}

func TestReadCSV_DecodesUTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	input, err := enc.String("apartment_id,building_id\nA1,1\n")
	require.NoError(t, err)

	raw, err := ReadCSV(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"apartment_id", "building_id"}, raw.Header)
	assert.Equal(t, [][]string{{"A1", "1"}}, raw.Records)
}

func TestReadCSV_RaggedRows(t *testing.T) {
	input := "apartment_id,building_id,floor_id\nA1\nA2,1,2,3\n"

	raw, err := ReadCSV(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, raw.Records, 2)
	assert.Len(t, raw.Records[0], 1)
	assert.Len(t, raw.Records[1], 4)
}

func TestReadCSV_Empty(t *testing.T) {
	raw, err := ReadCSV(context.Background(), strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, raw.Header)
	assert.Empty(t, raw.Records)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	raw, err := ReadCSV(context.Background(), strings.NewReader("apartment_id,building_id\n"))

	require.NoError(t, err)
	assert.Len(t, raw.Header, 2)
	assert.Empty(t, raw.Records)
}

func TestReadCSV_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("apartment_id\nA1\n"))

	assert.Error(t, err)
}
