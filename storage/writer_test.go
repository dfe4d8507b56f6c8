package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleSheets() []Sheet {
	return []Sheet{
		{
			Name:   "users-activity-category",
			Header: []string{"date", "name", "value"},
			Rows: [][]any{
				{"2023-11-14", "games", 10.5},
				{"2023-11-15", "games", int64(11)},
			},
		},
		{
			Name:   "volume-protocol",
			Header: []string{"date", "name", "value"},
			Rows:   [][]any{{"2023-11-14", "eth", 1.0}},
		},
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "book.xlsx")
	require.NoError(t, XLSXWriter{}.Write(path, sampleSheets()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"users-activity-category", "volume-protocol"}, f.GetSheetList())

	rows, err := f.GetRows("users-activity-category")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"date", "name", "value"},
		{"2023-11-14", "games", "10.5"},
		{"2023-11-15", "games", "11"},
	}, rows)
}

func TestXLSXWriterDuplicateSheetNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	sheets := []Sheet{{Name: "same"}, {Name: "same"}}
	require.NoError(t, XLSXWriter{}.Write(path, sheets))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"same", "same1"}, f.GetSheetList())
}

func TestUniqueSheetNameTruncates(t *testing.T) {
	used := map[string]struct{}{}
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	first := uniqueSheetName(long, used)
	second := uniqueSheetName(long, used)
	assert.Len(t, first, 31)
	assert.Len(t, second, 31)
	assert.NotEqual(t, first, second)
}

func TestCSVWriterSplitsSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overview.csv")
	require.NoError(t, CSVWriter{}.Write(path, sampleSheets()))

	f, err := os.Open(SheetPath(path, "users-activity-category"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"date", "name", "value"},
		{"2023-11-14", "games", "10.5"},
		{"2023-11-15", "games", "11"},
	}, records)

	_, err = os.Stat(SheetPath(path, "volume-protocol"))
	assert.NoError(t, err)
}

func TestCSVWriterSingleSheetUsesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detail.csv")
	require.NoError(t, CSVWriter{}.Write(path, sampleSheets()[:1]))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
