package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsMaxAttempts(t *testing.T) {
	cause := errors.New("always broken")
	calls := 0

	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		return cause
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
	if !errors.Is(err, ErrMaxAttempts) {
		t.Fatalf("expected ErrMaxAttempts, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected the last failure to be preserved, got %v", err)
	}
}

func TestDo_BackoffCeiling(t *testing.T) {
	cfg := Config{
		MaxAttempts: 6,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
	}

	start := time.Now()
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("always broken")
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrMaxAttempts) {
		t.Fatalf("expected ErrMaxAttempts, got %v", err)
	}
	// Capped delays sum to 45ms; uncapped doubling would reach 155ms.
	if elapsed > 120*time.Millisecond {
		t.Errorf("backoff exceeded the ceiling, total %v", elapsed)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, Config{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("always broken")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected retries to stop after cancellation, got %d calls", calls)
	}
	if errors.Is(err, ErrMaxAttempts) {
		t.Error("cancellation must not be reported as exhaustion")
	}
}

func TestDo_AlreadyCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected fn not to run, got %d calls", calls)
	}
}
