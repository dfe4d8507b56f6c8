package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EntityID is the stable id of a catalog entity. The API sends it as a JSON
// number; strings are accepted too.
type EntityID string

// UnmarshalJSON accepts a JSON number or string.
func (id *EntityID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EntityID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("models: entity id %s: %w", b, err)
	}
	*id = EntityID(n.String())
	return nil
}

// MarshalJSON writes integral ids as numbers and anything else as a string.
func (id EntityID) MarshalJSON() ([]byte, error) {
	if _, ok := id.int(); ok {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// int parses canonical decimal ids only: "007" and "+5" stay strings.
func (id EntityID) int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != string(id) {
		return 0, false
	}
	return n, true
}

func (id EntityID) String() string { return string(id) }

// Value is the spreadsheet cell value for the id.
func (id EntityID) Value() any {
	if n, ok := id.int(); ok {
		return n
	}
	return string(id)
}

// ListingRef holds the identifying fields of a listing entity. The full
// listing document is kept verbatim in the listing store; this is only the
// part the crawler needs to build detail URLs.
type ListingRef struct {
	ID           EntityID `json:"id"`
	Slug         string   `json:"slug"`
	ProtocolSlug string   `json:"protocolSlug"`
	Category     string   `json:"category"`
}

// DecodeListingRef extracts the identifying fields from a listing document.
func DecodeListingRef(doc json.RawMessage) (ListingRef, error) {
	var ref ListingRef
	if err := json.Unmarshal(doc, &ref); err != nil {
		return ListingRef{}, fmt.Errorf("models: decode listing entity: %w", err)
	}
	return ref, nil
}

// DecodeEntityKey extracts only the id of a listing document; the other
// fields are opaque to the listing crawl.
func DecodeEntityKey(doc json.RawMessage) (EntityID, error) {
	var key struct {
		ID EntityID `json:"id"`
	}
	if err := json.Unmarshal(doc, &key); err != nil {
		return "", fmt.Errorf("models: decode listing entity id: %w", err)
	}
	return key.ID, nil
}

// ListingPage is one page of the category-scoped listing endpoint.
type ListingPage struct {
	Dapps     []json.RawMessage `json:"dapps"`
	Page      int               `json:"page"`
	PageCount int               `json:"pageCount"`
}

// DecodeListingPage parses a listing response. Every one of dapps, page and
// pageCount must be present.
func DecodeListingPage(body []byte) (*ListingPage, error) {
	var raw struct {
		Dapps     *[]json.RawMessage `json:"dapps"`
		Page      *int               `json:"page"`
		PageCount *int               `json:"pageCount"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("models: decode listing page: %w", err)
	}
	switch {
	case raw.Dapps == nil:
		return nil, fmt.Errorf("models: listing page: missing key %q", "dapps")
	case raw.Page == nil:
		return nil, fmt.Errorf("models: listing page: missing key %q", "page")
	case raw.PageCount == nil:
		return nil, fmt.Errorf("models: listing page: missing key %q", "pageCount")
	}
	return &ListingPage{Dapps: *raw.Dapps, Page: *raw.Page, PageCount: *raw.PageCount}, nil
}
