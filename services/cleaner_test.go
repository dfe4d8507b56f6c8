package services

import (
	"encoding/json"
	"testing"

	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func entry(key, doc string) storage.Entry[json.RawMessage] {
	return storage.Entry[json.RawMessage]{Key: key, Value: json.RawMessage(doc)}
}

func TestCleanerKeepsCompleteRefs(t *testing.T) {
	c := NewCleaner(newTestLogger())

	refs := c.Clean([]storage.Entry[json.RawMessage]{
		entry("2", `{"id":2,"slug":" b ","protocolSlug":"eth","category":"games"}`),
		entry("1", `{"id":1,"slug":"a","protocolSlug":"eth","category":"games"}`),
	})

	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].ID != "2" || refs[1].ID != "1" {
		t.Errorf("order not preserved: %v", refs)
	}
	if refs[0].Slug != "b" {
		t.Errorf("slug not trimmed: %q", refs[0].Slug)
	}
}

func TestCleanerDropsIncompleteRefs(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		name string
		doc  string
	}{
		{"no slug", `{"id":1,"protocolSlug":"eth","category":"games"}`},
		{"no protocol", `{"id":1,"slug":"a","category":"games"}`},
		{"blank category", `{"id":1,"slug":"a","protocolSlug":"eth","category":"  "}`},
		{"not an object", `[1]`},
	}

	for _, tt := range tests {
		refs := c.Clean([]storage.Entry[json.RawMessage]{entry("1", tt.doc)})
		if len(refs) != 0 {
			t.Errorf("%s: expected entity to be dropped, got %v", tt.name, refs)
		}
	}
}

func TestCleanerFallsBackToKeyForID(t *testing.T) {
	c := NewCleaner(newTestLogger())
	refs := c.Clean([]storage.Entry[json.RawMessage]{
		entry("77", `{"slug":"a","protocolSlug":"eth","category":"games"}`),
	})
	if len(refs) != 1 || refs[0].ID != models.EntityID("77") {
		t.Errorf("expected id from map key, got %v", refs)
	}
}
