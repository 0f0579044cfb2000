package chi

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_Disabled(t *testing.T) {
	l := NewIPRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestIPRateLimiter_PerClientBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewIPRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request in the same instant should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Error("bucket should refill after one second")
	}
}

func TestIPRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewIPRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("idle")
	now = now.Add(limiterIdleTTL + time.Minute)
	l.Allow("active")

	if _, ok := l.limiters["idle"]; ok {
		t.Error("idle client should have been evicted")
	}
	if _, ok := l.limiters["active"]; !ok {
		t.Error("active client should be tracked")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/chatbot", nil)
	req.RemoteAddr = "203.0.113.7:52100"
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("got %q", got)
	}

	req.RemoteAddr = "203.0.113.7"
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("address without port: got %q", got)
	}
}
