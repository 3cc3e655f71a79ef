package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
)

func TestLimiter_AllowAndWindowReset(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("k") || !l.Allow("k") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("k") {
		t.Error("third request should be limited")
	}
	if got := l.Remaining("k"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
	if !l.Allow("other") {
		t.Error("keys are independent")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("k") {
		t.Error("new window should allow")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded", "203.0.113.5, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.2:1234", "198.51.100.7"},
		{"remote", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", "", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/auth/login", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter_PerIdentifier(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	defer ll.Stop()
	r := httptest.NewRequest("POST", "/api/auth/login", nil)

	for i := 0; i < 2; i++ {
		if err := ll.Check(r, "Ada@Example.com"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	err := ll.Check(r, "ada@example.com")
	if !apierr.IsKind(err, apierr.KindRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}

	ll.Succeeded("ADA@example.com")
	if err := ll.Check(r, "ada@example.com"); err != nil {
		t.Errorf("after success: %v", err)
	}
}

func TestLoginLimiter_PerIP(t *testing.T) {
	ll := NewLoginLimiterWithConfig(1, time.Minute, 100, time.Minute)
	defer ll.Stop()
	r := httptest.NewRequest("POST", "/api/auth/login", nil)

	if err := ll.Check(r, "+2348030000001"); err != nil {
		t.Fatal(err)
	}
	if err := ll.Check(r, "+2348030000002"); !apierr.IsKind(err, apierr.KindRateLimited) {
		t.Errorf("expected ip limit, got %v", err)
	}
}
