package dappradar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"dappradar-scraper/crawler"
	"dappradar-scraper/models"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// RefSource turns the stored listing into fetchable refs.
type RefSource interface {
	Clean(entries []storage.Entry[json.RawMessage]) []models.ListingRef
}

// DetailSpider fetches every listed entity's detail document, then its
// chart, and merges both into one record per id.
type DetailSpider struct {
	endpoints Endpoints
	refs      RefSource
	store     storage.DocumentStore
	fresh     bool
	logger    *utils.Logger

	data     *storage.Keyed[models.DetailChartRecord]
	seeded   *utils.KeySet
	router   crawler.Router
	loaded   bool
	total    int
	complete atomic.Int64
}

// NewDetailSpider creates a DetailSpider. Unless fresh is set, records from
// a previous run are kept and only the missing halves are fetched.
func NewDetailSpider(endpoints Endpoints, refs RefSource, store storage.DocumentStore,
	fresh bool, logger *utils.Logger) *DetailSpider {
	return &DetailSpider{
		endpoints: endpoints,
		refs:      refs,
		store:     store,
		fresh:     fresh,
		logger:    logger,
		data:      storage.NewKeyed[models.DetailChartRecord](),
		seeded:    utils.NewKeySet(),
	}
}

func (s *DetailSpider) Name() string { return "detail" }

func (s *DetailSpider) Setup(r crawler.Router) {
	s.router = r
	r.Handle(KindDetail, s.parseDetail)
	r.Handle(KindChart, s.parseChart)
}

func (s *DetailSpider) Start(ctx context.Context, emit crawler.Emitter) error {
	listing := storage.NewKeyed[json.RawMessage]()
	if err := storage.LoadInto(ctx, s.store, storage.ListingDocument, listing); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("detail: no listing stored, run the list command first: %w", err)
		}
		return err
	}

	if !s.fresh {
		err := storage.LoadInto(ctx, s.store, storage.DetailDocument, s.data)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	s.loaded = true

	var refs []models.ListingRef
	for _, ref := range s.refs.Clean(listing.Snapshot()) {
		if s.seeded.Add(ref.ID.String()) {
			refs = append(refs, ref)
		}
	}
	// handlers read total, so it is fixed before the first emit
	s.total = s.seeded.Size()

	var detailFetches, chartFetches int
	for _, ref := range refs {
		id := ref.ID.String()
		rec, _ := s.data.Get(id)
		switch rec.State() {
		case models.Complete:
			s.complete.Add(1)
			continue
		case models.DetailFetched:
			chartFetches++
			if err := emit.Emit(s.chartIntent(ref)); err != nil {
				return err
			}
		default:
			detailFetches++
			if err := emit.Emit(s.detailIntent(ref)); err != nil {
				return err
			}
		}
	}

	s.logger.Info("[detail] %d entities | %d already complete, %d detail fetches, %d chart fetches",
		s.total, s.complete.Load(), detailFetches, chartFetches)
	return nil
}

func (s *DetailSpider) Stop(ctx context.Context) error {
	if !s.loaded {
		return nil
	}
	if err := storage.SaveFrom(ctx, s.store, storage.DetailDocument, s.data); err != nil {
		return err
	}
	s.logger.Info("[detail] Saved %d records (%d/%d complete)", s.data.Len(), s.complete.Load(), s.total)
	return nil
}

// Records returns the merged records in insertion order.
func (s *DetailSpider) Records() []storage.Entry[models.DetailChartRecord] {
	return s.data.Snapshot()
}

func (s *DetailSpider) detailIntent(ref models.ListingRef) crawler.Intent {
	return crawler.Intent{Kind: KindDetail, URL: s.endpoints.Detail(ref), Meta: refMeta(ref)}
}

func (s *DetailSpider) chartIntent(ref models.ListingRef) crawler.Intent {
	return crawler.Intent{Kind: KindChart, URL: s.endpoints.Chart(ref), Meta: refMeta(ref)}
}

func (s *DetailSpider) parseDetail(_ context.Context, resp *crawler.Response) error {
	ref, err := refFromMeta(resp.Intent.Meta)
	if err != nil {
		return err
	}

	id := ref.ID.String()
	_, err = s.data.Upsert(id, func(cur models.DetailChartRecord, _ bool) (models.DetailChartRecord, error) {
		return cur.ApplyDetail(id, resp.Body)
	})
	if err != nil {
		return err
	}

	if err := s.router.Emit(s.chartIntent(ref)); err != nil && !errors.Is(err, crawler.ErrStopped) {
		return err
	}
	return nil
}

func (s *DetailSpider) parseChart(_ context.Context, resp *crawler.Response) error {
	ref, err := refFromMeta(resp.Intent.Meta)
	if err != nil {
		return err
	}
	if err := models.RequireChartKeys(resp.Body); err != nil {
		return err
	}

	id := ref.ID.String()
	_, err = s.data.Upsert(id, func(cur models.DetailChartRecord, _ bool) (models.DetailChartRecord, error) {
		return cur.ApplyChart(id, resp.Body)
	})
	if err != nil {
		return err
	}

	done := s.complete.Add(1)
	s.logger.Info("[detail] %s complete | %d/%d", ref.Slug, done, s.total)
	return nil
}
