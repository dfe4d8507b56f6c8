package services

import (
	"encoding/json"
	"strings"

	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// Cleaner turns stored listing documents into refs the detail crawl can use.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean decodes every listing entity and drops the ones a detail URL cannot
// be built for. Order is preserved.
func (c *Cleaner) Clean(entries []storage.Entry[json.RawMessage]) []models.ListingRef {
	result := make([]models.ListingRef, 0, len(entries))

	for _, e := range entries {
		ref, err := models.DecodeListingRef(e.Value)
		if err != nil {
			c.logger.Warn("[cleaner] Dropping undecodable entity %s: %v", e.Key, err)
			continue
		}

		ref.Slug = strings.TrimSpace(ref.Slug)
		ref.ProtocolSlug = strings.TrimSpace(ref.ProtocolSlug)
		ref.Category = strings.TrimSpace(ref.Category)
		if ref.ID == "" {
			ref.ID = models.EntityID(e.Key)
		}

		if ref.Slug == "" || ref.ProtocolSlug == "" || ref.Category == "" {
			c.logger.Warn("[cleaner] Dropping entity %s: missing slug, protocolSlug or category", e.Key)
			continue
		}

		result = append(result, ref)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d entities (dropped %d)",
		len(entries), len(result), len(entries)-len(result))
	return result
}
