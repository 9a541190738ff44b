package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func captureDelays(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := wait
	wait = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { wait = orig })
	return &delays
}

func TestDoBackoffSequence(t *testing.T) {
	delays := captureDelays(t)

	rateLimited := errors.New("rate limited")
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts <= 3 {
			return rateLimited
		}
		return nil
	}, func(err error) bool { return errors.Is(err, rateLimited) })

	if err != nil {
		t.Fatalf("Do() returned error: %v", err)
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}

	want := []time.Duration{0, time.Second, 3 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d (%v)", len(want), len(*delays), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestDoTerminalErrorPropagatesImmediately(t *testing.T) {
	delays := captureDelays(t)

	terminal := errors.New("boom")
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return terminal
	}, func(error) bool { return false })

	if !errors.Is(err, terminal) {
		t.Errorf("expected terminal error to propagate, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if len(*delays) != 0 {
		t.Errorf("terminal failure must not sleep, slept %v", *delays)
	}
}

func TestDoImmediateSuccess(t *testing.T) {
	delays := captureDelays(t)

	err := Do(context.Background(), func() error { return nil }, func(error) bool { return true })
	if err != nil {
		t.Fatalf("Do() returned error: %v", err)
	}
	if len(*delays) != 0 {
		t.Errorf("success must not sleep, slept %v", *delays)
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rateLimited := errors.New("rate limited")
	err := Do(ctx, func() error { return rateLimited }, func(error) bool { return true })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
