package utils

import (
	"errors"
	"testing"
	"time"
)

func TestRetryBackoffDoubles(t *testing.T) {
	r := &RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{40, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		got, ok := r.Backoff(tt.failures)
		if !ok {
			t.Fatalf("Backoff(%d): unbounded policy refused a retry", tt.failures)
		}
		if got != tt.want {
			t.Errorf("Backoff(%d) = %v; want %v", tt.failures, got, tt.want)
		}
	}
}

func TestRetryBackoffZeroBaseIsImmediate(t *testing.T) {
	r := &RetryConfig{}
	for _, failures := range []int{1, 5, 1000} {
		delay, ok := r.Backoff(failures)
		if !ok || delay != 0 {
			t.Errorf("Backoff(%d) = %v, %v; want 0, true", failures, delay, ok)
		}
	}
	if !r.Unbounded() {
		t.Error("zero MaxAttempts should be unbounded")
	}
}

func TestRetryBackoffCap(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3}

	if _, ok := r.Backoff(2); !ok {
		t.Error("second failure of three attempts should allow a retry")
	}
	if _, ok := r.Backoff(3); ok {
		t.Error("third failure of three attempts should stop")
	}
}

func TestRetryDo(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, Logger: Discard()}

	calls := 0
	err := r.Do("flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}

	sentinel := errors.New("always")
	err = r.Do("broken", func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Do should wrap the last error, got %v", err)
	}
}
