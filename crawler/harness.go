package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dappradar-scraper/utils"
)

// DeliverFunc reports the outcome of a submitted intent back to the harness.
// Exactly one call per submission.
type DeliverFunc func(in Intent, status int, body []byte, err error)

// Backend performs the actual fetches.
type Backend interface {
	Submit(in Intent, deliver DeliverFunc) error
}

// Options configures a Harness.
type Options struct {
	Retry  *utils.RetryConfig
	Logger *utils.Logger
}

// Harness runs one spider on a Backend. It keeps its own count of
// outstanding intents: a run is finished when none is left.
type Harness struct {
	backend Backend
	retry   *utils.RetryConfig
	logger  *utils.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  bool
	fatal    error

	pending sync.WaitGroup
	stats   Stats
}

// New creates a Harness. A nil Retry means retry immediately and forever.
func New(backend Backend, opts Options) *Harness {
	if opts.Retry == nil {
		opts.Retry = &utils.RetryConfig{}
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger()
	}
	return &Harness{
		backend:  backend,
		retry:    opts.Retry,
		logger:   opts.Logger,
		handlers: make(map[string]Handler),
		ctx:      context.Background(),
	}
}

// Handle registers the handler for intents of the given kind.
func (h *Harness) Handle(kind string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[kind] = fn
}

// Emit submits an intent. It fails with ErrStopped once the run is over, and
// with the backend's error when the intent cannot be submitted at all.
func (h *Harness) Emit(in Intent) error {
	if !h.acquire() {
		return ErrStopped
	}
	atomic.AddInt64(&h.stats.Emitted, 1)
	if err := h.backend.Submit(in, h.deliver); err != nil {
		h.pending.Done()
		return fmt.Errorf("crawler: submit %s: %w", in.URL, err)
	}
	return nil
}

// Stats returns a copy of the run counters.
func (h *Harness) Stats() Stats {
	return Stats{
		Emitted:   atomic.LoadInt64(&h.stats.Emitted),
		Succeeded: atomic.LoadInt64(&h.stats.Succeeded),
		Retried:   atomic.LoadInt64(&h.stats.Retried),
		Abandoned: atomic.LoadInt64(&h.stats.Abandoned),
	}
}

// Run drives s: Setup, Start, then waits until no intent is outstanding or
// ctx is cancelled, and finally calls Stop. A fatal handler error aborts the
// run and is returned.
func (h *Harness) Run(ctx context.Context, s Spider) (err error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.mu.Lock()
	h.ctx, h.cancel = runCtx, cancel
	h.mu.Unlock()

	s.Setup(h)
	h.logger.Info("[harness] %s starting (retry: %s)", s.Name(), describeRetry(h.retry))
	began := time.Now()

	defer func() {
		h.stop()
		if serr := s.Stop(context.WithoutCancel(ctx)); serr != nil {
			h.logger.Error("[harness] %s shutdown failed: %v", s.Name(), serr)
			if err == nil {
				err = fmt.Errorf("crawler: %s shutdown: %w", s.Name(), serr)
			}
		}
		st := h.Stats()
		h.logger.Info("[harness] %s finished in %v | emitted %d, succeeded %d, retried %d, abandoned %d",
			s.Name(), time.Since(began).Round(time.Millisecond), st.Emitted, st.Succeeded, st.Retried, st.Abandoned)
	}()

	if err := s.Start(runCtx, h); err != nil {
		return fmt.Errorf("crawler: %s startup: %w", s.Name(), err)
	}

	idle := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(idle)
	}()

	select {
	case <-idle:
	case <-runCtx.Done():
		h.logger.Warn("[harness] %s interrupted with intents outstanding", s.Name())
	}
	h.stop()

	if ferr := h.fatalErr(); ferr != nil {
		return ferr
	}
	return ctx.Err()
}

func (h *Harness) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.pending.Add(1)
	return true
}

func (h *Harness) stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

func (h *Harness) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (h *Harness) fatalErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fatal
}

func (h *Harness) abort(err error) {
	h.mu.Lock()
	if h.fatal == nil {
		h.fatal = err
	}
	h.stopped = true
	cancel := h.cancel
	h.mu.Unlock()

	h.logger.Error("[harness] aborting: %v", err)
	if cancel != nil {
		cancel()
	}
}

func (h *Harness) deliver(in Intent, status int, body []byte, fetchErr error) {
	defer h.pending.Done()

	err := fetchErr
	if err == nil {
		err = h.handle(in, status, body)
	}
	if err == nil {
		atomic.AddInt64(&h.stats.Succeeded, 1)
		return
	}
	if IsFatal(err) {
		h.abort(fmt.Errorf("crawler: %s %s: %w", in.Kind, in.URL, err))
		return
	}
	h.reissue(in, err)
}

func (h *Harness) handle(in Intent, status int, body []byte) (err error) {
	h.mu.Lock()
	fn, ctx := h.handlers[in.Kind], h.ctx
	h.mu.Unlock()

	if fn == nil {
		return &fatalError{fmt.Errorf("no handler registered for kind %q", in.Kind)}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, &Response{Intent: in, StatusCode: status, Body: body})
}

// reissue re-submits the same intent after the policy's backoff.
func (h *Harness) reissue(in Intent, cause error) {
	failures := in.Attempt + 1
	delay, ok := h.retry.Backoff(failures)
	if !ok {
		atomic.AddInt64(&h.stats.Abandoned, 1)
		h.logger.Error("[harness] giving up on %s %s after %d attempts: %v", in.Kind, in.URL, failures, cause)
		return
	}

	h.logger.Error("[harness] %s %s failed (attempt %d): %v | re-issuing in %v", in.Kind, in.URL, failures, cause, delay)
	if !h.acquire() {
		return
	}
	atomic.AddInt64(&h.stats.Retried, 1)

	next := in
	next.Attempt = failures
	time.AfterFunc(delay, func() {
		if h.isStopped() {
			h.pending.Done()
			return
		}
		if err := h.backend.Submit(next, h.deliver); err != nil {
			h.logger.Error("[harness] re-issue %s failed: %v", next.URL, err)
			h.pending.Done()
		}
	})
}

func describeRetry(r *utils.RetryConfig) string {
	if r.Unbounded() {
		return fmt.Sprintf("unbounded, base delay %v", r.BaseDelay)
	}
	return fmt.Sprintf("%d attempts, base delay %v", r.MaxAttempts, r.BaseDelay)
}

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }
func (e *fatalError) Fatal() bool   { return true }
