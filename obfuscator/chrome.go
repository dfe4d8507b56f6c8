package obfuscator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeEngine evaluates the site's encrypt.js inside a headless Chrome tab
// and exposes its global encode function as a Transform.
type ChromeEngine struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  func()
	timeout time.Duration
}

// ChromeOptions configures the script engine.
type ChromeOptions struct {
	ScriptPath string
	ChromeBin  string
	// Timeout bounds each evaluation. Zero means 10s.
	Timeout time.Duration
}

// NewChromeEngine loads and primes the script once. Any failure here is
// fatal for the caller: no listing request can be built without it.
func NewChromeEngine(opts ChromeOptions) (*ChromeEngine, error) {
	src, err := os.ReadFile(opts.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("obfuscator: read script: %w", err)
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("obfuscator: script %s is empty", opts.ScriptPath)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if bin := findChromeBinary(opts.ChromeBin); bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	// Suppress chromedp log noise
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	e := &ChromeEngine{
		ctx: ctx,
		cancel: func() {
			cancelCtx()
			cancelAlloc()
		},
		timeout: timeout,
	}

	// The first Run starts the browser; it must not carry a deadline or the
	// browser dies with it.
	if err := chromedp.Run(ctx); err != nil {
		e.Close()
		return nil, fmt.Errorf("obfuscator: start browser: %w", err)
	}

	var ready bool
	runCtx, cancelRun := context.WithTimeout(ctx, timeout)
	defer cancelRun()
	err = chromedp.Run(runCtx,
		chromedp.Evaluate(string(src)+"\n;void 0;", nil),
		chromedp.Evaluate(`typeof encode === "function"`, &ready),
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("obfuscator: load script: %w", err)
	}
	if !ready {
		e.Close()
		return nil, fmt.Errorf("obfuscator: script %s does not define encode()", opts.ScriptPath)
	}
	return e, nil
}

// Encode calls encode(text) in the browser. Calls are serialised on the
// single tab.
func (e *ChromeEngine) Encode(text string) (string, error) {
	arg, err := json.Marshal(text)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	var out string
	if err := chromedp.Run(ctx, chromedp.Evaluate("String(encode("+string(arg)+"))", &out)); err != nil {
		return "", fmt.Errorf("obfuscator: evaluate encode: %w", err)
	}
	return out, nil
}

// Close shuts the browser down.
func (e *ChromeEngine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
