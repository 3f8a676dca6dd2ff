package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestExecute_Success(t *testing.T) {
	cb := New(DefaultConfig("test"))

	result, err := cb.Execute(func() (interface{}, error) {
		return "ok", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %v", result)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected closed state, got %v", cb.State())
	}
}

func TestExecute_TripsAfterFailures(t *testing.T) {
	cfg := Config{
		Name:             "trip-test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      3,
	}
	cb := New(cfg)
	testErr := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}

	if !cb.IsOpen() {
		t.Errorf("expected open state after failures, got %v", cb.State())
	}

	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("function must not run while the circuit is open")
		return nil, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestExecute_StaysClosedBelowMinRequests(t *testing.T) {
	cfg := Config{
		Name:             "min-requests-test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      10,
	}
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected closed state below min requests, got %v", cb.State())
	}
}

func TestConfigProfiles(t *testing.T) {
	if cfg := ListingCrawlConfig("milliyet"); cfg.Name != "listing-milliyet" {
		t.Errorf("listing breaker name = %q", cfg.Name)
	}
	if cfg := ListingCrawlConfig("x"); cfg.Timeout != 900*time.Second {
		t.Errorf("listing open timeout = %v, want 900s", cfg.Timeout)
	}
	if cfg := LLMAPIConfig("gemini"); cfg.Name != "gemini-api" {
		t.Errorf("LLM breaker name = %q", cfg.Name)
	}
	if cfg := FeedFetchConfig(); cfg.MinRequests != 10 {
		t.Errorf("feed fetch MinRequests = %d, want 10", cfg.MinRequests)
	}
}
