package services

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// OverviewHeader is the header shared by every aggregate sheet.
var OverviewHeader = []string{"date", "name", "value"}

const chartsPath = "/api/charts/"

// SheetName derives an aggregate sheet name from its source URL: the first
// two path segments after /api/charts/, joined with a hyphen.
func SheetName(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, chartsPath); i >= 0 {
		rest = rest[i+len(chartsPath):]
	} else if u, err := url.Parse(rawURL); err == nil {
		rest = strings.TrimPrefix(u.Path, "/")
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}

	parts := strings.Split(rest, "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "-")
}

// OverviewExporter pivots aggregate charts into one sheet per endpoint.
type OverviewExporter struct {
	logger *utils.Logger
	loc    *time.Location
}

// NewOverviewExporter creates an exporter converting dates in loc; nil means
// the system timezone.
func NewOverviewExporter(logger *utils.Logger, loc *time.Location) *OverviewExporter {
	if loc == nil {
		loc = time.Local
	}
	return &OverviewExporter{logger: logger, loc: loc}
}

// Build emits, per endpoint, one (date, series name, value) row per point,
// series in response order and dates in xaxis order.
func (e *OverviewExporter) Build(records []storage.Entry[json.RawMessage]) []storage.Sheet {
	sheets := make([]storage.Sheet, 0, len(records))

	for _, rec := range records {
		chart, err := models.DecodeChart(rec.Value)
		if err != nil {
			e.logger.Warn("[export] Skipping %s: %v", rec.Key, err)
			continue
		}

		sheet := storage.Sheet{Name: SheetName(rec.Key), Header: OverviewHeader}
		for _, series := range chart.Series {
			n := min(len(chart.XAxis), len(series.Data))
			for i := 0; i < n; i++ {
				sheet.Rows = append(sheet.Rows, []any{
					FormatDate(chart.XAxis[i], e.loc),
					series.Name,
					series.Data[i],
				})
			}
		}
		e.logger.Debug("[export] %s: %d rows", sheet.Name, len(sheet.Rows))
		sheets = append(sheets, sheet)
	}

	return sheets
}
