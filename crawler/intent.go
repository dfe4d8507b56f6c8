// Package crawler is the crawl harness the collectors run on: it turns fetch
// intents into requests, routes responses back to the handler registered for
// the intent's kind, re-issues failed intents according to a retry policy,
// and drives the spider's startup/shutdown hooks.
package crawler

import (
	"context"
	"errors"
)

// ErrStopped is returned by Emit once the run is shutting down.
var ErrStopped = errors.New("crawler: harness stopped")

// Meta is the context attached to an intent and handed back with its
// response.
type Meta map[string]string

// Intent describes one outbound request.
type Intent struct {
	Kind string
	URL  string
	Meta Meta
	// Attempt counts previous failed deliveries of this intent.
	Attempt int
}

// Response is a successful fetch of an intent.
type Response struct {
	Intent     Intent
	StatusCode int
	Body       []byte
}

// Handler consumes a response. A non-nil error re-issues the intent, unless
// the error is fatal (see IsFatal), which aborts the run.
type Handler func(ctx context.Context, resp *Response) error

// Emitter accepts fetch intents.
type Emitter interface {
	Emit(in Intent) error
}

// Router is an Emitter that handlers can be registered on.
type Router interface {
	Emitter
	Handle(kind string, h Handler)
}

// Spider is a collector driven by a harness. Setup registers handlers,
// Start is the startup hook (load state, seed intents) and Stop the
// shutdown hook (flush state). Stop runs even when the run is cancelled or
// aborted.
type Spider interface {
	Name() string
	Setup(r Router)
	Start(ctx context.Context, emit Emitter) error
	Stop(ctx context.Context) error
}

// IsFatal reports whether err, or an error it wraps, declares itself fatal
// through a `Fatal() bool` method.
func IsFatal(err error) bool {
	var f interface{ Fatal() bool }
	return errors.As(err, &f) && f.Fatal()
}

// Stats counts what happened during a run.
type Stats struct {
	Emitted   int64
	Succeeded int64
	Retried   int64
	Abandoned int64
}
