package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func testRetry(attempts int) *RetryConfig {
	return &RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, Logger: NewLogger()}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := testRetry(3).Do("op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v; want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := testRetry(3).Do("op", func() error {
		calls++
		return errors.New("still broken")
	})
	if err == nil {
		t.Fatal("Do() = nil; want error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := testRetry(5).Do("op", func() error {
		calls++
		return fmt.Errorf("status 404: %w", ErrPermanent)
	})
	if !errors.Is(err, ErrPermanent) {
		t.Errorf("Do() = %v; want ErrPermanent", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; permanent failures must not retry", calls)
	}
}

func TestURLSetDedup(t *testing.T) {
	s := NewURLSet()
	if !s.Add("https://a.pl/1") {
		t.Error("first Add should return true")
	}
	if s.Add("https://a.pl/1") {
		t.Error("second Add of same URL should return false")
	}
	if !s.Contains("https://a.pl/1") {
		t.Error("Contains should find the URL")
	}
	if s.Size() != 1 {
		t.Errorf("Size = %d; want 1", s.Size())
	}
}

func TestRateLimiterEnforcesInterval(t *testing.T) {
	rl := NewRateLimiter(20 * time.Millisecond)
	rl.Wait()
	start := time.Now()
	rl.Wait()
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("second Wait returned after %v; want ~20ms", elapsed)
	}
}
