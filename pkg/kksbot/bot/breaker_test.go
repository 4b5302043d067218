package bot

import (
	"testing"
	"time"
)

func TestBreakerWindow(t *testing.T) {
	b := NewCircuitBreaker(time.Minute, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if b.Open() {
		t.Error("Open() = true before any trip")
	}

	b.Trip()
	if !b.Open() {
		t.Error("Open() = false right after Trip")
	}

	now = now.Add(59 * time.Second)
	if !b.Open() {
		t.Error("Open() = false before window elapsed")
	}

	now = now.Add(2 * time.Second)
	if b.Open() {
		t.Error("Open() = true after window elapsed")
	}
}

func TestBreakerReset(t *testing.T) {
	b := NewCircuitBreaker(time.Hour, nil)
	b.Trip()
	b.Reset()
	if b.Open() {
		t.Error("Open() = true after Reset")
	}
	if !b.Deadline().IsZero() {
		t.Error("Deadline() not zero after Reset")
	}
}

func TestBreakerRetrip(t *testing.T) {
	b := NewCircuitBreaker(time.Minute, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Trip()
	first := b.Deadline()
	now = now.Add(30 * time.Second)
	b.Trip()
	if !b.Deadline().After(first) {
		t.Error("second Trip did not extend the deadline")
	}
}
