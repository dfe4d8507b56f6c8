package models

import (
	"encoding/json"
	"fmt"
)

// Series is one named numeric sequence aligned positionally to Chart.XAxis.
type Series struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// Chart is a time-series document: epoch-millisecond timestamps plus the
// series that share them.
type Chart struct {
	XAxis  []int64  `json:"xaxis"`
	Series []Series `json:"series"`
}

// SeriesByName returns the data of the last series called name, or nil.
func (c *Chart) SeriesByName(name string) []float64 {
	var data []float64
	for _, s := range c.Series {
		if s.Name == name {
			data = s.Data
		}
	}
	return data
}

// RequireChartKeys checks that body is a JSON object carrying the xaxis
// and series keys. Their contents are not inspected.
func RequireChartKeys(body []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("models: decode chart: %w", err)
	}
	for _, key := range []string{"xaxis", "series"} {
		if _, ok := doc[key]; !ok {
			return fmt.Errorf("models: chart: missing key %q", key)
		}
	}
	return nil
}

// DecodeChart parses a chart payload and rejects documents that lack the
// xaxis or series keys.
func DecodeChart(body []byte) (*Chart, error) {
	if err := RequireChartKeys(body); err != nil {
		return nil, err
	}

	var chart Chart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("models: decode chart: %w", err)
	}
	return &chart, nil
}

// EntityDetail is the subset of a detail document used by the exporter.
type EntityDetail struct {
	ID       EntityID `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
}

// DecodeEntityDetail parses a detail document.
func DecodeEntityDetail(body []byte) (*EntityDetail, error) {
	var d EntityDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("models: decode detail: %w", err)
	}
	return &d, nil
}
