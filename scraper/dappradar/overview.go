package dappradar

import (
	"context"
	"encoding/json"
	"errors"

	"dappradar-scraper/crawler"
	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// OverviewSpider fetches the industry-wide charts and stores each payload
// verbatim under its source URL.
type OverviewSpider struct {
	endpoints Endpoints
	store     storage.DocumentStore
	fresh     bool
	logger    *utils.Logger

	data   *storage.Keyed[json.RawMessage]
	loaded bool
}

func NewOverviewSpider(endpoints Endpoints, store storage.DocumentStore, fresh bool, logger *utils.Logger) *OverviewSpider {
	return &OverviewSpider{
		endpoints: endpoints,
		store:     store,
		fresh:     fresh,
		logger:    logger,
		data:      storage.NewKeyed[json.RawMessage](),
	}
}

func (s *OverviewSpider) Name() string { return "overview" }

func (s *OverviewSpider) Setup(r crawler.Router) {
	r.Handle(KindOverview, s.parse)
}

func (s *OverviewSpider) Start(ctx context.Context, emit crawler.Emitter) error {
	if !s.fresh {
		err := storage.LoadInto(ctx, s.store, storage.OverviewDocument, s.data)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	s.loaded = true

	for _, url := range s.endpoints.Overview() {
		if _, ok := s.data.Get(url); ok {
			s.logger.Debug("[overview] %s already stored", url)
			continue
		}
		if err := emit.Emit(crawler.Intent{Kind: KindOverview, URL: url}); err != nil {
			return err
		}
	}
	return nil
}

func (s *OverviewSpider) Stop(ctx context.Context) error {
	if !s.loaded {
		return nil
	}
	if err := storage.SaveFrom(ctx, s.store, storage.OverviewDocument, s.data); err != nil {
		return err
	}
	s.logger.Info("[overview] Saved %d charts", s.data.Len())
	return nil
}

// Charts returns the stored payloads keyed by URL.
func (s *OverviewSpider) Charts() []storage.Entry[json.RawMessage] {
	return s.data.Snapshot()
}

func (s *OverviewSpider) parse(_ context.Context, resp *crawler.Response) error {
	if err := models.RequireChartKeys(resp.Body); err != nil {
		return err
	}
	s.data.Put(resp.Intent.URL, append(json.RawMessage(nil), resp.Body...))
	s.logger.Info("[overview] %s stored | %d/%d", resp.Intent.URL, s.data.Len(), len(s.endpoints.Overview()))
	return nil
}
