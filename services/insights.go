package services

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// InsightService reports how much of the catalog the stores cover.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the coverage of the three stores.
func (s *InsightService) Generate(
	listing []storage.Entry[json.RawMessage],
	detail []storage.Entry[models.DetailChartRecord],
	overview []storage.Entry[json.RawMessage],
) *models.CoverageReport {
	report := &models.CoverageReport{
		Listings:           len(listing),
		ListingsByCategory: make(map[string]int),
		DetailRecords:      len(detail),
	}

	for _, e := range listing {
		ref, err := models.DecodeListingRef(e.Value)
		if err != nil {
			s.logger.Debug("[insights] undecodable listing %s: %v", e.Key, err)
			continue
		}
		report.ListingsByCategory[ref.Category]++
	}

	present := make(map[string]struct{}, len(detail))
	for _, e := range detail {
		present[e.Key] = struct{}{}
		switch e.Value.State() {
		case models.Complete:
			report.DetailComplete++
		case models.DetailFetched:
			report.DetailPartial++
		}
	}
	for _, e := range listing {
		if _, ok := present[e.Key]; !ok {
			report.DetailMissing++
		}
	}

	for _, e := range overview {
		report.OverviewEndpoints = append(report.OverviewEndpoints, SheetName(e.Key))
	}
	return report
}

// Render formats the report as a table.
func (s *InsightService) Render(r *models.CoverageReport) string {
	t := table.NewWriter()
	t.SetTitle("DappRadar crawl coverage")
	t.AppendHeader(table.Row{"Section", "Item", "Count"})

	t.AppendRow(table.Row{"listing", "entities", r.Listings})
	cats := make([]string, 0, len(r.ListingsByCategory))
	for cat := range r.ListingsByCategory {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if r.ListingsByCategory[cats[i]] != r.ListingsByCategory[cats[j]] {
			return r.ListingsByCategory[cats[i]] > r.ListingsByCategory[cats[j]]
		}
		return cats[i] < cats[j]
	})
	for _, cat := range cats {
		t.AppendRow(table.Row{"listing", "category " + cat, r.ListingsByCategory[cat]})
	}
	t.AppendSeparator()

	t.AppendRow(table.Row{"detail", "records", r.DetailRecords})
	t.AppendRow(table.Row{"detail", "complete", r.DetailComplete})
	t.AppendRow(table.Row{"detail", "detail only", r.DetailPartial})
	t.AppendRow(table.Row{"detail", "not fetched", r.DetailMissing})
	t.AppendSeparator()

	t.AppendRow(table.Row{"overview", "endpoints", len(r.OverviewEndpoints)})
	for _, name := range r.OverviewEndpoints {
		t.AppendRow(table.Row{"overview", name, ""})
	}

	t.SetStyle(table.StyleRounded)
	return t.Render()
}

// Print writes the rendered report to w.
func (s *InsightService) Print(w io.Writer, r *models.CoverageReport) {
	fmt.Fprintln(w, s.Render(r))
}
