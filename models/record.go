package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecordState is the fetch progress of one entity's detail+chart record.
type RecordState int

const (
	Pending RecordState = iota
	DetailFetched
	Complete
)

func (s RecordState) String() string {
	switch s {
	case Pending:
		return "pending"
	case DetailFetched:
		return "detail-fetched"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("RecordState(%d)", int(s))
	}
}

// InvariantError reports a merge the record state machine does not allow.
// It signals an ordering or duplication bug, so the crawl must halt.
type InvariantError struct {
	ID     string
	State  RecordState
	Update string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("models: record %s: %s update not allowed in state %s", e.ID, e.Update, e.State)
}

// Fatal marks the error as non-retryable for the crawl harness.
func (e *InvariantError) Fatal() bool { return true }

// DetailChartRecord merges an entity's detail document with its chart
// document. Only the present halves are serialised, so a complete record is
// a JSON object with exactly two top-level fields.
type DetailChartRecord struct {
	Detail json.RawMessage `json:"detail,omitempty"`
	Chart  json.RawMessage `json:"chart,omitempty"`
}

// State derives the record state from the halves present.
func (r DetailChartRecord) State() RecordState {
	switch {
	case len(r.Detail) > 0 && len(r.Chart) > 0:
		return Complete
	case len(r.Detail) > 0:
		return DetailFetched
	default:
		return Pending
	}
}

// FieldCount is the number of top-level fields the record serialises to.
func (r DetailChartRecord) FieldCount() int {
	n := 0
	if len(r.Detail) > 0 {
		n++
	}
	if len(r.Chart) > 0 {
		n++
	}
	return n
}

// ApplyDetail stores the detail document. Re-fetching the detail of a record
// whose chart is still missing overwrites it.
func (r DetailChartRecord) ApplyDetail(id string, doc json.RawMessage) (DetailChartRecord, error) {
	if r.State() == Complete {
		return r, &InvariantError{ID: id, State: r.State(), Update: "detail"}
	}
	if err := requireObject(doc); err != nil {
		return r, fmt.Errorf("models: record %s: detail: %w", id, err)
	}
	return DetailChartRecord{Detail: clone(doc)}, nil
}

// ApplyChart stores the chart document, completing the record.
func (r DetailChartRecord) ApplyChart(id string, doc json.RawMessage) (DetailChartRecord, error) {
	if r.State() != DetailFetched {
		return r, &InvariantError{ID: id, State: r.State(), Update: "chart"}
	}
	if err := requireObject(doc); err != nil {
		return r, fmt.Errorf("models: record %s: chart: %w", id, err)
	}
	next := DetailChartRecord{Detail: r.Detail, Chart: clone(doc)}
	if next.FieldCount() != 2 {
		return r, &InvariantError{ID: id, State: next.State(), Update: "chart"}
	}
	return next, nil
}

func requireObject(doc json.RawMessage) error {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("payload is not a JSON object")
	}
	return nil
}

func clone(doc json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), bytes.TrimSpace(doc)...)
}
