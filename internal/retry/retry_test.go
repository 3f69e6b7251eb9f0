package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()

	var waited []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	t.Cleanup(func() { wait = original })

	return &waited
}

func TestDelayDoublesAndCaps(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	cases := map[int]time.Duration{
		0:  time.Second,
		1:  time.Second,
		2:  2 * time.Second,
		3:  4 * time.Second,
		5:  16 * time.Second,
		6:  30 * time.Second,
		40: 30 * time.Second,
	}

	for attempt, want := range cases {
		if got := p.Delay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	waited := stubWait(t)

	type observed struct {
		attempt int
		delay   time.Duration
	}
	var seen []observed

	p := Default().WithObserver(func(attempt int, err error, delay time.Duration) {
		if err == nil {
			t.Fatalf("observer called without error")
		}
		seen = append(seen, observed{attempt: attempt, delay: delay})
	})

	calls := 0
	got, err := Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("model unavailable")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected result %q", got)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}

	want := []observed{{1, time.Second}, {2, 2 * time.Second}}
	if len(seen) != len(want) {
		t.Fatalf("expected %d observer calls, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("observer call %d: expected %+v, got %+v", i, want[i], seen[i])
		}
	}
	if len(*waited) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(*waited))
	}
}

func TestDoReturnsFinalErrorAfterExhaustion(t *testing.T) {
	stubWait(t)

	sentinel := errors.New("still down")
	calls := 0
	_, err := Do(context.Background(), Default(), func(context.Context) (int, error) {
		calls++
		return 0, sentinel
	})

	if calls != DefaultMaxAttempts {
		t.Fatalf("expected %d calls, got %d", DefaultMaxAttempts, calls)
	}
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected final operation error to be preserved, got %v", err)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	stubWait(t)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Default(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call after cancellation, got %d", calls)
	}
}

func TestDoSingleAttemptWhenUnset(t *testing.T) {
	waited := stubWait(t)

	calls := 0
	_, err := Do(context.Background(), Policy{}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	if err == nil || calls != 1 || len(*waited) != 0 {
		t.Fatalf("expected one call without waits, got calls=%d waits=%d err=%v", calls, len(*waited), err)
	}
}
