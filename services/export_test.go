package services

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dappradar-scraper/models"
	"dappradar-scraper/storage"
)

func record(detail, chart string) models.DetailChartRecord {
	return models.DetailChartRecord{Detail: json.RawMessage(detail), Chart: json.RawMessage(chart)}
}

const twoDayChart = `{"xaxis":[1700000000000,1700086400000],"series":[
	{"name":"Users","data":[10,20]},
	{"name":"Volume","data":[1,2]},
	{"name":"Transactions","data":[0,1]}]}`

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2023-11-14", FormatDate(1700000000000, time.UTC))

	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "2023-11-15", FormatDate(1700000000000, tokyo))
}

func TestEntityRowsMostRecentFirst(t *testing.T) {
	e := NewEntityExporter(newTestLogger(), time.UTC)
	rows, err := e.Rows(record(`{"id":7000,"name":"Alien Worlds","category":"games"}`, twoDayChart))
	require.NoError(t, err)

	assert.Equal(t, [][]any{
		{"2023-11-15", 20.0, 2.0, 1.0, "games", "Alien Worlds", int64(7000)},
		{"2023-11-14", 10.0, 1.0, 0.0, "games", "Alien Worlds", int64(7000)},
	}, rows)
}

func TestEntityRowsPlaceholderForEmptyChart(t *testing.T) {
	e := NewEntityExporter(newTestLogger(), time.UTC)
	rows, err := e.Rows(record(`{"id":"x","name":"n","category":"c"}`, `{"xaxis":[],"series":[]}`))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"", 0.0, 0.0, 0.0, "c", "n", "x"}}, rows)
}

func TestEntityRowsMissingSeriesTruncates(t *testing.T) {
	e := NewEntityExporter(newTestLogger(), time.UTC)
	chart := `{"xaxis":[1700000000000,1700086400000],"series":[
		{"name":"Users","data":[10,20]},
		{"name":"Volume","data":[1]}]}`

	rows, err := e.Rows(record(`{"id":1,"name":"n","category":"c"}`, chart))
	require.NoError(t, err)
	require.Len(t, rows, 1, "no Transactions series leaves only the placeholder")
	assert.Equal(t, "", rows[0][0])

	chart = `{"xaxis":[1700000000000,1700086400000],"series":[
		{"name":"Users","data":[10,20]},
		{"name":"Volume","data":[1]},
		{"name":"Transactions","data":[5,6]}]}`
	rows, err = e.Rows(record(`{"id":1,"name":"n","category":"c"}`, chart))
	require.NoError(t, err)
	require.Len(t, rows, 1, "the zip stops at the shortest series")
	assert.Equal(t, "2023-11-14", rows[0][0])
}

func TestEntityRowsTiesReverseInputOrder(t *testing.T) {
	e := NewEntityExporter(newTestLogger(), time.UTC)
	// two timestamps on the same UTC day
	chart := `{"xaxis":[1700000000000,1700000001000],"series":[
		{"name":"Users","data":[1,2]},
		{"name":"Volume","data":[0,0]},
		{"name":"Transactions","data":[0,0]}]}`

	rows, err := e.Rows(record(`{"id":1,"name":"n","category":"c"}`, chart))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2.0, rows[0][1])
	assert.Equal(t, 1.0, rows[1][1])
}

func TestEntityBuildSkipsIncompleteRecords(t *testing.T) {
	e := NewEntityExporter(newTestLogger(), time.UTC)
	sheet := e.Build([]storage.Entry[models.DetailChartRecord]{
		{Key: "1", Value: record(`{"id":1,"name":"a","category":"c"}`, twoDayChart)},
		{Key: "2", Value: models.DetailChartRecord{Detail: json.RawMessage(`{"id":2}`)}},
		{Key: "3", Value: record(`{"id":3,"name":"b","category":"c"}`, `{"xaxis":[],"series":[]}`)},
		{Key: "4", Value: record(`{"id":4}`, `[1,2]`)},
	})

	assert.Equal(t, EntitySheetName, sheet.Name)
	assert.Equal(t, EntityHeader, sheet.Header)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, int64(1), sheet.Rows[0][6])
	assert.Equal(t, int64(1), sheet.Rows[1][6])
	assert.Equal(t, int64(3), sheet.Rows[2][6])
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://dappradar.com/api/charts/users-activity/category/history/year?currency=USD", "users-activity-category"},
		{"https://dappradar.com/api/charts/volume/protocol/history/year?currency=EUR", "volume-protocol"},
		{"http://127.0.0.1:9000/api/charts/transactions/category", "transactions-category"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.url); got != tt.want {
			t.Errorf("SheetName(%q) = %q; want %q", tt.url, got, tt.want)
		}
	}
}

func overviewRecords() []storage.Entry[json.RawMessage] {
	var records []storage.Entry[json.RawMessage]
	for _, metric := range []string{"users-activity", "transactions", "volume"} {
		for _, group := range []string{"category", "protocol"} {
			url := fmt.Sprintf("https://dappradar.com/api/charts/%s/%s/history/year?currency=USD", metric, group)
			records = append(records, entry(url, `{"xaxis":[1700086400000,1700000000000],"series":[
				{"name":"games","data":[3,4]},
				{"name":"defi","data":[5,6]}]}`))
		}
	}
	return records
}

func TestOverviewBuildKeepsResponseOrder(t *testing.T) {
	e := NewOverviewExporter(newTestLogger(), time.UTC)
	sheets := e.Build(overviewRecords())

	require.Len(t, sheets, 6)
	assert.Equal(t, "users-activity-category", sheets[0].Name)
	assert.Equal(t, "volume-protocol", sheets[5].Name)
	for _, s := range sheets {
		assert.Equal(t, OverviewHeader, s.Header)
		assert.Equal(t, [][]any{
			{"2023-11-15", "games", 3.0},
			{"2023-11-14", "games", 4.0},
			{"2023-11-15", "defi", 5.0},
			{"2023-11-14", "defi", 6.0},
		}, s.Rows, s.Name)
	}
}

func TestOverviewBuildSkipsUnreadable(t *testing.T) {
	e := NewOverviewExporter(newTestLogger(), time.UTC)
	sheets := e.Build([]storage.Entry[json.RawMessage]{
		entry("https://dappradar.com/api/charts/volume/category/history/year", `"oops"`),
		entry("https://dappradar.com/api/charts/volume/protocol/history/year", `{"xaxis":[1],"series":[{"name":"a","data":[1,2]}]}`),
	})
	require.Len(t, sheets, 1)
	assert.Len(t, sheets[0].Rows, 1)
}

func TestEntityExportRoundTripDatesDescend(t *testing.T) {
	chart := `{"xaxis":[1700000000000,1700172800000,1700086400000],"series":[
		{"name":"Users","data":[1,2,3]},
		{"name":"Volume","data":[1,2,3]},
		{"name":"Transactions","data":[1,2,3]}]}`
	e := NewEntityExporter(newTestLogger(), time.UTC)
	sheet := e.Build([]storage.Entry[models.DetailChartRecord]{
		{Key: "1", Value: record(`{"id":1,"name":"a","category":"c"}`, chart)},
		{Key: "2", Value: record(`{"id":2,"name":"b","category":"c"}`, twoDayChart)},
	})

	path := filepath.Join(t.TempDir(), "dappradar.xlsx")
	require.NoError(t, storage.XLSXWriter{}.Write(path, []storage.Sheet{sheet}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Sheet", f.GetSheetName(0))
	rows, err := f.GetRows(EntitySheetName)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, EntityHeader, rows[0])

	last := make(map[string]string)
	for _, row := range rows[1:] {
		id, date := row[6], row[0]
		if prev, ok := last[id]; ok {
			assert.GreaterOrEqual(t, prev, date, "entity %s dates must not increase", id)
		}
		last[id] = date
	}
	n, err := strconv.Atoi(rows[1][6])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
