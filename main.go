package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)
	var ie *initError
	if errors.As(err, &ie) {
		os.Exit(2)
	}
	os.Exit(1)
}

// initError marks failures that happen before any crawling starts:
// configuration, store connection, script engine.
type initError struct{ err error }

func (e *initError) Error() string { return e.err.Error() }
func (e *initError) Unwrap() error { return e.err }

func initFailed(format string, args ...any) error {
	return &initError{err: fmt.Errorf(format, args...)}
}
