package dappradar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"dappradar-scraper/crawler"
	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// Encrypter produces the obfuscated params token.
type Encrypter interface {
	Encrypt(text string) (string, error)
}

// ListingSpider paginates every category until page == pageCount and keeps
// the union of all entities keyed by id.
type ListingSpider struct {
	endpoints  Endpoints
	categories []string
	enc        Encrypter
	store      storage.DocumentStore
	fresh      bool
	logger     *utils.Logger

	data   *storage.Keyed[json.RawMessage]
	router crawler.Router
	loaded bool
}

// NewListingSpider creates a ListingSpider. Unless fresh is set, a previous
// run's map is loaded and merged into.
func NewListingSpider(endpoints Endpoints, categories []string, enc Encrypter,
	store storage.DocumentStore, fresh bool, logger *utils.Logger) *ListingSpider {
	return &ListingSpider{
		endpoints:  endpoints,
		categories: categories,
		enc:        enc,
		store:      store,
		fresh:      fresh,
		logger:     logger,
		data:       storage.NewKeyed[json.RawMessage](),
	}
}

func (s *ListingSpider) Name() string { return "listing" }

func (s *ListingSpider) Setup(r crawler.Router) {
	s.router = r
	r.Handle(KindListing, s.parse)
}

func (s *ListingSpider) Start(ctx context.Context, emit crawler.Emitter) error {
	if !s.fresh {
		err := storage.LoadInto(ctx, s.store, storage.ListingDocument, s.data)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if s.data.Len() > 0 {
			s.logger.Info("[listing] Resuming with %d stored entities", s.data.Len())
		}
	}
	s.loaded = true

	for _, cat := range s.categories {
		in, err := s.request(cat, 1)
		if err != nil {
			return err
		}
		if err := emit.Emit(in); err != nil {
			return err
		}
	}
	return nil
}

func (s *ListingSpider) Stop(ctx context.Context) error {
	if !s.loaded {
		return nil
	}
	if err := storage.SaveFrom(ctx, s.store, storage.ListingDocument, s.data); err != nil {
		return err
	}
	s.logger.Info("[listing] Saved %d entities", s.data.Len())
	return nil
}

// Entities returns the collected listing documents in insertion order.
func (s *ListingSpider) Entities() []storage.Entry[json.RawMessage] {
	return s.data.Snapshot()
}

func (s *ListingSpider) request(cat string, page int) (crawler.Intent, error) {
	token, err := s.enc.Encrypt(s.endpoints.ListingParams(cat, page))
	if err != nil {
		return crawler.Intent{}, fmt.Errorf("listing: params for %s page %d: %w", cat, page, err)
	}
	return crawler.Intent{
		Kind: KindListing,
		URL:  s.endpoints.Listing(token),
		Meta: crawler.Meta{"cat": cat, "page": strconv.Itoa(page)},
	}, nil
}

func (s *ListingSpider) parse(_ context.Context, resp *crawler.Response) error {
	cat := resp.Intent.Meta["cat"]

	page, err := models.DecodeListingPage(resp.Body)
	if err != nil {
		return err
	}

	for _, doc := range page.Dapps {
		id, err := models.DecodeEntityKey(doc)
		if err != nil || id == "" {
			s.logger.Warn("[listing] %s page %d: entity without usable id skipped", cat, page.Page)
			continue
		}
		s.data.Put(id.String(), append(json.RawMessage(nil), doc...))
	}

	s.logger.Info("[listing] %s page %d/%d | %d entities collected", cat, page.Page, page.PageCount, s.data.Len())

	if page.Page >= page.PageCount {
		return nil
	}
	next, err := s.request(cat, page.Page+1)
	if err != nil {
		return err
	}
	if err := s.router.Emit(next); err != nil && !errors.Is(err, crawler.ErrStopped) {
		return err
	}
	return nil
}
