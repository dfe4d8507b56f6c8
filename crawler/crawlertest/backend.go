// Package crawlertest provides an in-memory crawler.Backend for tests.
package crawlertest

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"dappradar-scraper/crawler"
)

// Reply is one canned answer for a URL.
type Reply struct {
	Status int
	Body   []byte
	Err    error
}

// JSON is a 200 reply with the given body.
func JSON(body string) Reply {
	return Reply{Status: http.StatusOK, Body: []byte(body)}
}

// Status is an error reply with the given HTTP status.
func Status(code int) Reply {
	return Reply{Status: code}
}

// Backend answers intents from a URL table. Each URL's replies are consumed
// in order; the last one repeats. Unknown URLs answer 404. Deliveries happen
// on their own goroutines, like a real worker pool.
type Backend struct {
	mu     sync.Mutex
	routes map[string][]Reply
	hits   map[string]int
	order  []string

	// Refuse, when set, makes Submit fail synchronously for some intents.
	Refuse func(in crawler.Intent) error
}

// NewBackend creates an empty Backend.
func NewBackend() *Backend {
	return &Backend{routes: make(map[string][]Reply), hits: make(map[string]int)}
}

// Serve registers the replies for url.
func (b *Backend) Serve(url string, replies ...Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[url] = append([]Reply(nil), replies...)
}

// Hits returns how many times url was requested.
func (b *Backend) Hits(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[url]
}

// Requested returns every requested URL in submission order.
func (b *Backend) Requested() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

func (b *Backend) Submit(in crawler.Intent, deliver crawler.DeliverFunc) error {
	if b.Refuse != nil {
		if err := b.Refuse(in); err != nil {
			return err
		}
	}
	reply := b.next(in.URL)

	go func() {
		switch {
		case reply.Err != nil:
			deliver(in, reply.Status, nil, reply.Err)
		case reply.Status < 200 || reply.Status >= 300:
			deliver(in, reply.Status, nil, fmt.Errorf("fetch failed (status %d): %w", reply.Status, errors.New(http.StatusText(reply.Status))))
		default:
			deliver(in, reply.Status, reply.Body, nil)
		}
	}()
	return nil
}

func (b *Backend) next(url string) Reply {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.hits[url]
	b.hits[url] = n + 1
	b.order = append(b.order, url)

	replies := b.routes[url]
	if len(replies) == 0 {
		return Status(http.StatusNotFound)
	}
	if n >= len(replies) {
		n = len(replies) - 1
	}
	return replies[n]
}
