package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CSVWriter writes each sheet to its own CSV file. A single sheet goes to
// path itself; several sheets go to <path-without-ext>-<sheet>.csv.
type CSVWriter struct{}

func (CSVWriter) Write(path string, sheets []Sheet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	for _, sheet := range sheets {
		target := path
		if len(sheets) > 1 {
			target = SheetPath(path, sheet.Name)
		}
		if err := writeCSV(target, sheet); err != nil {
			return err
		}
	}
	return nil
}

// SheetPath derives the per-sheet file name used for multi-sheet exports.
func SheetPath(path, sheet string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "-" + sheet + ".csv"
}

func writeCSV(path string, sheet Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(sheet.Header) > 0 {
		if err := w.Write(sheet.Header); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
	}

	record := make([]string, 0, len(sheet.Header))
	for _, values := range sheet.Rows {
		record = record[:0]
		for _, v := range values {
			record = append(record, formatCell(v))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush %q: %w", path, err)
	}
	return f.Close()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
