package crawler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"dappradar-scraper/utils"
)

const fetchKey = "crawler.fetch"

// CollyOptions configures the colly backend.
type CollyOptions struct {
	// Parallelism is the worker pool size. Values below 1 mean 1.
	Parallelism int
	// Delay between requests to the same domain.
	Delay time.Duration
	// Timeout per request. Zero keeps colly's default.
	Timeout time.Duration
	Logger  *utils.Logger
}

// CollyBackend fetches intents with an asynchronous colly collector.
type CollyBackend struct {
	c      *colly.Collector
	logger *utils.Logger
}

type pendingFetch struct {
	intent  Intent
	deliver DeliverFunc
	once    sync.Once
}

func (p *pendingFetch) done(status int, body []byte, err error) {
	p.once.Do(func() { p.deliver(p.intent, status, body, err) })
}

// NewCollyBackend builds the collector: async, URL revisits allowed (retries
// hit the same URL), unlimited body size, random user agent and referer.
func NewCollyBackend(opts CollyOptions) (*CollyBackend, error) {
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger()
	}
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	c := colly.NewCollector(colly.Async(true), colly.AllowURLRevisit())
	c.MaxBodySize = 0
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       opts.Delay,
	}); err != nil {
		return nil, fmt.Errorf("crawler: set limit rule: %w", err)
	}

	extensions.RandomUserAgent(c)
	extensions.Referer(c)

	b := &CollyBackend{c: c, logger: opts.Logger}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json, text/plain, */*")
		r.Headers.Set("Accept-Encoding", "gzip, br")
		b.logger.Debug("[harness] GET %s", r.URL.String())
	})
	c.OnResponse(b.onResponse)
	c.OnError(b.onError)
	return b, nil
}

func (b *CollyBackend) Submit(in Intent, deliver DeliverFunc) error {
	ctx := colly.NewContext()
	ctx.Put(fetchKey, &pendingFetch{intent: in, deliver: deliver})
	return b.c.Request(http.MethodGet, in.URL, nil, ctx, nil)
}

// Wait blocks until colly's own goroutines are done.
func (b *CollyBackend) Wait() {
	b.c.Wait()
}

func (b *CollyBackend) onResponse(r *colly.Response) {
	pf, ok := r.Ctx.GetAny(fetchKey).(*pendingFetch)
	if !ok {
		b.logger.Warn("[harness] response without intent: %s", r.Request.URL)
		return
	}
	var encoding string
	if r.Headers != nil {
		encoding = r.Headers.Get("Content-Encoding")
	}
	body, err := decodeBody(encoding, r.Body)
	pf.done(r.StatusCode, body, err)
}

func (b *CollyBackend) onError(r *colly.Response, err error) {
	if r == nil || r.Ctx == nil {
		b.logger.Error("[harness] error without response context: %v", err)
		return
	}
	pf, ok := r.Ctx.GetAny(fetchKey).(*pendingFetch)
	if !ok {
		b.logger.Error("[harness] error without intent: %v", err)
		return
	}
	pf.done(r.StatusCode, nil, fmt.Errorf("fetch failed (status %d): %w", r.StatusCode, err))
}
