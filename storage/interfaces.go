package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by DocumentStore.Load for unknown documents.
var ErrNotFound = errors.New("storage: document not found")

// Document names, one per collector.
const (
	ListingDocument  = "app_list"
	DetailDocument   = "app_detail"
	OverviewDocument = "industry_overview"
)

// DocumentStore is the interface any durable backend must satisfy. It keeps
// named JSON documents that are read and written wholesale.
type DocumentStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, body []byte) error
	Close() error
}

// Sheet is one worksheet of tabular output.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// SheetWriter persists sheets to a spreadsheet file.
type SheetWriter interface {
	Write(path string, sheets []Sheet) error
}

// LoadInto decodes the named document into v. A missing document yields
// ErrNotFound and leaves v untouched.
func LoadInto(ctx context.Context, store DocumentStore, name string, v json.Unmarshaler) error {
	body, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := v.UnmarshalJSON(body); err != nil {
		return fmt.Errorf("storage: load %s: %w", name, err)
	}
	return nil
}

// SaveFrom encodes v and stores it under name.
func SaveFrom(ctx context.Context, store DocumentStore, name string, v json.Marshaler) error {
	body, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("storage: save %s: %w", name, err)
	}
	return store.Save(ctx, name, body)
}
