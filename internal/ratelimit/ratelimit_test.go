package ratelimit

import (
	"testing"
	"time"
)

func TestTryConsumeCapWithinWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < DefaultLimit; i++ {
		now = now.Add(time.Second)
		if !l.TryConsume("w3c/scribe2") {
			t.Fatalf("call %d denied, want allowed", i+1)
		}
	}
	if l.TryConsume("w3c/scribe2") {
		t.Errorf("call %d allowed, want denied", DefaultLimit+1)
	}
}

func TestWindowElapseResets(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < DefaultLimit; i++ {
		l.TryConsume("w3c/aria")
	}
	if l.TryConsume("w3c/aria") {
		t.Fatal("over-cap call allowed within window")
	}

	now = now.Add(DefaultWindow)
	if !l.TryConsume("w3c/aria") {
		t.Error("call after window elapsed denied, want allowed")
	}
}

func TestBudgetsArePerRepository(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < DefaultLimit; i++ {
		l.TryConsume("w3c/scribe2")
	}
	if !l.TryConsume("w3c/aria") {
		t.Error("separate repository should have its own budget")
	}
}
