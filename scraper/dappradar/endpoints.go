// Package dappradar holds the collectors for the DappRadar JSON API: the
// category listing, per-dapp detail and chart documents, and the
// industry-wide overview charts.
package dappradar

import (
	"fmt"
	"strings"

	"dappradar-scraper/crawler"
	"dappradar-scraper/models"
)

// Intent kinds.
const (
	KindListing  = "listing"
	KindDetail   = "detail"
	KindChart    = "chart"
	KindOverview = "overview"
)

const listingLimit = 26

var (
	overviewMetrics   = []string{"users-activity", "transactions", "volume"}
	overviewGroupings = []string{"category", "protocol"}
)

// Endpoints builds upstream URLs.
type Endpoints struct {
	Base     string
	Currency string
}

// NewEndpoints trims a trailing slash off base; an empty currency means USD.
func NewEndpoints(base, currency string) Endpoints {
	if currency == "" {
		currency = "USD"
	}
	return Endpoints{Base: strings.TrimRight(base, "/"), Currency: currency}
}

// ListingParams is the plain query string that gets obfuscated.
func (e Endpoints) ListingParams(category string, page int) string {
	return fmt.Sprintf("page=%d&sgroup=max&featured=1&range=day&category=%s&sort=user&order=desc&limit=%d",
		page, category, listingLimit)
}

// Listing embeds the obfuscated token verbatim; the API expects it unescaped.
func (e Endpoints) Listing(token string) string {
	return e.Base + "/v2/api/dapps?params=" + token
}

func (e Endpoints) Detail(ref models.ListingRef) string {
	return fmt.Sprintf("%s/v2/api/dapp/%s/%s/%s", e.Base, ref.ProtocolSlug, ref.Category, ref.Slug)
}

func (e Endpoints) Chart(ref models.ListingRef) string {
	return e.Detail(ref) + "/chart/all"
}

// Overview returns the six aggregate chart URLs, metric-major.
func (e Endpoints) Overview() []string {
	urls := make([]string, 0, len(overviewMetrics)*len(overviewGroupings))
	for _, metric := range overviewMetrics {
		for _, group := range overviewGroupings {
			urls = append(urls, fmt.Sprintf("%s/api/charts/%s/%s/history/year?currency=%s",
				e.Base, metric, group, e.Currency))
		}
	}
	return urls
}

func refMeta(ref models.ListingRef) crawler.Meta {
	return crawler.Meta{
		"id":           ref.ID.String(),
		"protocolSlug": ref.ProtocolSlug,
		"category":     ref.Category,
		"slug":         ref.Slug,
	}
}

func refFromMeta(m crawler.Meta) (models.ListingRef, error) {
	ref := models.ListingRef{
		ID:           models.EntityID(m["id"]),
		ProtocolSlug: m["protocolSlug"],
		Category:     m["category"],
		Slug:         m["slug"],
	}
	if ref.ID == "" {
		return ref, fmt.Errorf("dappradar: intent context has no entity id")
	}
	return ref, nil
}
