package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheckLogin_LockoutAfterMaxAttempts(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		MaxAttempts:  3,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 30,
		Clock:        clock,
	})

	account := "ana@club.test"
	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		result := limiter.CheckLogin(account, ip)
		if !result.Allowed {
			t.Fatalf("Attempt %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		lockedOut := limiter.RecordFailure(account, ip)
		if i < 2 && lockedOut {
			t.Fatalf("Attempt %d should not trigger lockout", i+1)
		}
		if i == 2 && !lockedOut {
			t.Fatal("Third failure should trigger lockout")
		}
	}

	result := limiter.CheckLogin(account, ip)
	if result.Allowed {
		t.Fatal("Locked account should be blocked")
	}
	if result.Reason != "lockout" {
		t.Fatalf("Expected reason 'lockout', got %q", result.Reason)
	}

	// Lockout expires after the configured duration.
	clock.Advance(5*time.Minute + time.Second)
	result = limiter.CheckLogin(account, ip)
	if !result.Allowed {
		t.Fatalf("Expired lockout should allow attempts, got blocked: %s", result.Reason)
	}
}

func TestRecordSuccess_ResetsFailures(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		MaxAttempts:  3,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 30,
		Clock:        clock,
	})

	account := "ana@club.test"
	ip := "192.168.1.1"

	limiter.RecordFailure(account, ip)
	limiter.RecordFailure(account, ip)
	limiter.RecordSuccess(account, ip)
	limiter.RecordFailure(account, ip)
	limiter.RecordFailure(account, ip)

	result := limiter.CheckLogin(account, ip)
	if !result.Allowed {
		t.Fatalf("Counter should have reset on success, got blocked: %s", result.Reason)
	}
}

func TestCheckLogin_CaseInsensitiveAccount(t *testing.T) {
	limiter := New(&Config{
		MaxAttempts:  2,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 30,
		Clock:        newMockClock(),
	})

	limiter.RecordFailure("Ana@Club.Test", "192.168.1.1")
	limiter.RecordFailure("ana@club.test", "192.168.1.1")

	result := limiter.CheckLogin("ANA@CLUB.TEST", "192.168.1.1")
	if result.Allowed {
		t.Fatal("Case variants should share the failure counter")
	}
}

func TestCheckLogin_IPHourlyLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		MaxAttempts:  100,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 3,
		Clock:        clock,
	})

	ip := "203.0.113.7"
	for i := 0; i < 3; i++ {
		account := fmt.Sprintf("user%d@club.test", i)
		if result := limiter.CheckLogin(account, ip); !result.Allowed {
			t.Fatalf("Attempt %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		limiter.RecordFailure(account, ip)
	}

	result := limiter.CheckLogin("another@club.test", ip)
	if result.Allowed {
		t.Fatal("IP over hourly limit should be blocked")
	}
	if result.Reason != "ip_hourly_limit" {
		t.Fatalf("Expected reason 'ip_hourly_limit', got %q", result.Reason)
	}

	// Window rolls over after an hour.
	clock.Advance(time.Hour + time.Second)
	if result := limiter.CheckLogin("another@club.test", ip); !result.Allowed {
		t.Fatalf("New hour window should allow attempts, got blocked: %s", result.Reason)
	}
}

func TestPrune_DropsStaleEntries(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		MaxAttempts:  3,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 30,
		Clock:        clock,
	})

	limiter.RecordFailure("ana@club.test", "192.168.1.1")
	clock.Advance(2 * time.Hour)
	limiter.Prune()

	limiter.mu.RLock()
	accounts, ips := len(limiter.byAccount), len(limiter.byIP)
	limiter.mu.RUnlock()
	if accounts != 0 || ips != 0 {
		t.Fatalf("Prune left %d account and %d IP entries", accounts, ips)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.1:54321", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"10.0.0.5", "10.0.0.5"},
	}
	for _, tt := range tests {
		r := &http.Request{RemoteAddr: tt.remoteAddr}
		if got := ClientIP(r); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}

func TestSanitizeAccount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ana@club.test", "an***@club.test"},
		{"a@club.test", "***@club.test"},
		{"frontdesk", "fr***"},
		{"x", "***"},
	}
	for _, tt := range tests {
		if got := SanitizeAccount(tt.in); got != tt.want {
			t.Errorf("SanitizeAccount(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
