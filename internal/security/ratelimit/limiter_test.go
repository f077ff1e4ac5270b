package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("user-1") {
		t.Fatalf("request over limit should be denied")
	}
	if !l.Allow("user-2") {
		t.Fatalf("other subject should have its own budget")
	}
}

func TestAllowEmptySubject(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	// Unauthenticated traffic has no subject and is not limited here.
	for i := 0; i < 5; i++ {
		if !l.Allow("") {
			t.Fatalf("empty subject must always pass")
		}
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(2, 100*time.Millisecond)
	defer l.Stop()

	if !l.Allow("user-1") || !l.Allow("user-1") {
		t.Fatalf("first two requests should be allowed")
	}
	if l.Allow("user-1") {
		t.Fatalf("third request should be denied")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow("user-1") {
		t.Fatalf("request after window should be allowed")
	}
}

func TestAllowStrictSeparateBudget(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	for i := 0; i < 2; i++ {
		if !l.AllowStrict("10.0.0.9", 2, time.Minute) {
			t.Fatalf("strict request %d should be allowed", i+1)
		}
	}
	if l.AllowStrict("10.0.0.9", 2, time.Minute) {
		t.Fatalf("strict request over limit should be denied")
	}
	// The normal budget for the same subject is untouched.
	if !l.Allow("10.0.0.9") {
		t.Fatalf("normal budget must not share the strict counter")
	}
}
