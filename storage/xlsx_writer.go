package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXWriter writes sheets into one Excel workbook with excelize.
type XLSXWriter struct{}

// Write creates (or truncates) the workbook at path. Sheets keep their order;
// the workbook's default sheet is renamed to the first one. Intermediate
// directories are created automatically.
func (XLSXWriter) Write(path string, sheets []Sheet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}

	used := make(map[string]struct{})
	for i, sheet := range sheets {
		name := uniqueSheetName(sheet.Name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("xlsx: rename default sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx: create sheet %q: %w", name, err)
		}

		if err := writeSheet(f, name, sheet, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("xlsx: stream %q: %w", name, err)
	}

	row := 1
	if len(sheet.Header) > 0 {
		cells := make([]interface{}, len(sheet.Header))
		for i, h := range sheet.Header {
			cells[i] = excelize.Cell{StyleID: headerStyle, Value: h}
		}
		if err := sw.SetRow("A1", cells); err != nil {
			return fmt.Errorf("xlsx: %q header: %w", name, err)
		}
		row++
	}

	for _, values := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("xlsx: %q row %d: %w", name, row, err)
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("xlsx: %q row %d: %w", name, row, err)
		}
		row++
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush %q: %w", name, err)
	}
	return nil
}

// uniqueSheetName truncates to Excel's limit and suffixes repeats with a
// counter.
func uniqueSheetName(name string, used map[string]struct{}) string {
	if name == "" {
		name = "Sheet"
	}
	name = truncateRunes(name, maxSheetName)
	candidate := name
	for n := 1; ; n++ {
		if _, taken := used[candidate]; !taken {
			break
		}
		suffix := strconv.Itoa(n)
		candidate = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	used[candidate] = struct{}{}
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
