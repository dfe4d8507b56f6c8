package services

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"dappradar-scraper/models"
	"dappradar-scraper/storage"
)

func sampleCoverage() ([]storage.Entry[json.RawMessage], []storage.Entry[models.DetailChartRecord], []storage.Entry[json.RawMessage]) {
	listing := []storage.Entry[json.RawMessage]{
		entry("1", `{"id":1,"slug":"a","protocolSlug":"eth","category":"games"}`),
		entry("2", `{"id":2,"slug":"b","protocolSlug":"eth","category":"games"}`),
		entry("3", `{"id":3,"slug":"c","protocolSlug":"wax","category":"gambling"}`),
	}
	detail := []storage.Entry[models.DetailChartRecord]{
		{Key: "1", Value: models.DetailChartRecord{Detail: json.RawMessage(`{}`), Chart: json.RawMessage(`{}`)}},
		{Key: "2", Value: models.DetailChartRecord{Detail: json.RawMessage(`{}`)}},
	}
	overview := []storage.Entry[json.RawMessage]{
		entry("https://dappradar.com/api/charts/volume/protocol/history/year?currency=USD", `{}`),
	}
	return listing, detail, overview
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleCoverage())

	if r.Listings != 3 {
		t.Errorf("Listings: got %d, want 3", r.Listings)
	}
	if r.ListingsByCategory["games"] != 2 || r.ListingsByCategory["gambling"] != 1 {
		t.Errorf("ListingsByCategory: got %v", r.ListingsByCategory)
	}
	if r.DetailComplete != 1 || r.DetailPartial != 1 || r.DetailMissing != 1 {
		t.Errorf("detail states: complete %d, partial %d, missing %d",
			r.DetailComplete, r.DetailPartial, r.DetailMissing)
	}
	assert.Equal(t, []string{"volume-protocol"}, r.OverviewEndpoints)
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleCoverage()))

	out := buf.String()
	assert.Contains(t, out, "category games")
	assert.Contains(t, out, "volume-protocol")
	assert.Contains(t, out, "not fetched")
}

func TestInsightEmptyStores(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil, nil, nil)
	if r.Listings != 0 || r.DetailRecords != 0 || len(r.OverviewEndpoints) != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
	assert.NotEmpty(t, svc.Render(r))
}
