package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-quality/internal/core/batch"
)

const sampleCSV = `id,name,age,score,active
1,Alice,25,95.5,true
2,Bob,30,87.3,false
3,Charlie,,76.8,true
4,David,40,92.1,true
5,,45,65.2,false
`

func TestReadCSVInfersTypes(t *testing.T) {
	b, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 5, b.Len())
	assert.Equal(t, []string{"id", "name", "age", "score", "active"}, b.Names())
	assert.Equal(t, map[string]string{
		"id":     "int64",
		"name":   "object",
		"age":    "float64",
		"score":  "float64",
		"active": "bool",
	}, b.Schema())

	name, _ := b.Column("name")
	assert.Nil(t, name.Values[4])
	id, _ := b.Column("id")
	assert.Equal(t, int64(3), id.Values[2])
}

func TestReadCSVRejectsRaggedRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2\n3\n"))
	require.Error(t, err)
}

func TestReadCSVEmpty(t *testing.T) {
	b, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Names())
}

func TestReadJSONRecords(t *testing.T) {
	in := `[
		{"id": 1, "name": "Alice", "amount": 9.5},
		{"id": 2, "amount": 3, "country": "TW"},
		{"id": 3, "name": null, "amount": 1.25, "id": 4}
	]`
	b, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []string{"id", "name", "amount", "country"}, b.Names())

	id, _ := b.Column("id")
	assert.Equal(t, []any{int64(1), int64(2), int64(4)}, id.Values)
	name, _ := b.Column("name")
	assert.Equal(t, []any{"Alice", nil, nil}, name.Values)
	amount, _ := b.Column("amount")
	assert.Equal(t, []any{9.5, int64(3), 1.25}, amount.Values)
	country, _ := b.Column("country")
	assert.Equal(t, []any{nil, "TW", nil}, country.Values)
	assert.Equal(t, "float64", batch.DType(amount.Values))
}

func TestReadJSONRejectsNonArray(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"id": 1}`))
	require.Error(t, err)
	_, err = ReadJSON(strings.NewReader(`[1, 2]`))
	require.Error(t, err)
}

func TestFileLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	b, err := File{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, b.Len())

	_, err = File{Path: filepath.Join(dir, "batch.parquet")}.Load(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = File{Path: path, Format: "xml"}.Load(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("", "events.JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = ParseFormat(" CSV ", "events.json")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
}
