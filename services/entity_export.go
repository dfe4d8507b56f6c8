package services

import (
	"sort"
	"time"

	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// EntitySheetName is the single sheet of the per-dapp workbook.
const EntitySheetName = "Sheet"

// EntityHeader is the fixed header of the per-dapp sheet.
var EntityHeader = []string{"date", "Users", "Volume", "Transactions", "category", "name", "app_id"}

const dateLayout = "2006-01-02"

// FormatDate converts an epoch-millisecond timestamp to a calendar date in
// loc.
func FormatDate(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(dateLayout)
}

// EntityExporter flattens detail+chart records into one sheet.
type EntityExporter struct {
	logger *utils.Logger
	loc    *time.Location
}

// NewEntityExporter creates an exporter converting dates in loc; nil means
// the system timezone.
func NewEntityExporter(logger *utils.Logger, loc *time.Location) *EntityExporter {
	if loc == nil {
		loc = time.Local
	}
	return &EntityExporter{logger: logger, loc: loc}
}

// Build concatenates the rows of every complete record in store order.
// Incomplete records are skipped.
func (e *EntityExporter) Build(records []storage.Entry[models.DetailChartRecord]) storage.Sheet {
	sheet := storage.Sheet{Name: EntitySheetName, Header: EntityHeader}

	var incomplete, broken int
	for _, rec := range records {
		if rec.Value.State() != models.Complete {
			incomplete++
			continue
		}
		rows, err := e.Rows(rec.Value)
		if err != nil {
			broken++
			e.logger.Warn("[export] Skipping record %s: %v", rec.Key, err)
			continue
		}
		sheet.Rows = append(sheet.Rows, rows...)
	}

	e.logger.Info("[export] %d rows from %d records (%d incomplete, %d unreadable)",
		len(sheet.Rows), len(records), incomplete, broken)
	return sheet
}

// Rows builds one row per date, most recent first. The Users, Volume and
// Transactions series are zipped against xaxis and the zip stops at the
// shortest of the four, so a missing series yields no dated rows; an entity
// without dated rows gets a single placeholder row.
func (e *EntityExporter) Rows(rec models.DetailChartRecord) ([][]any, error) {
	detail, err := models.DecodeEntityDetail(rec.Detail)
	if err != nil {
		return nil, err
	}
	chart, err := models.DecodeChart(rec.Chart)
	if err != nil {
		return nil, err
	}

	users := chart.SeriesByName("Users")
	volume := chart.SeriesByName("Volume")
	trans := chart.SeriesByName("Transactions")
	n := min(len(chart.XAxis), len(users), len(volume), len(trans))

	id := detail.ID.Value()
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []any{
			FormatDate(chart.XAxis[i], e.loc),
			users[i],
			volume[i],
			trans[i],
			detail.Category,
			detail.Name,
			id,
		})
	}

	// ascending stable sort then reverse: equal dates end up in reverse
	// input order
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i][0].(string) < rows[j][0].(string)
	})
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	if len(rows) == 0 {
		rows = append(rows, []any{"", 0.0, 0.0, 0.0, detail.Category, detail.Name, id})
	}
	return rows, nil
}
