// Package ratelimit provides rate limiting for login attempts.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	MaxAttempts  int           // Failed attempts per account before lockout (default: 5)
	Lockout      time.Duration // Lockout duration after max attempts (default: 5m)
	MaxIPPerHour int           // Max attempts per IP per hour (default: 30)

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  5,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 30,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks attempt counts and timestamps.
type entry struct {
	count    int
	firstAt  time.Time
	lastAt   time.Time
	lockedAt time.Time // Zero if not locked
}

// Limiter tracks failed logins per account and attempts per IP.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex
	// Keyed by hash of account identifier or IP
	byAccount map[string]*entry
	byIP      map[string]*entry
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		config:    cfg,
		clock:     clock,
		byAccount: make(map[string]*entry),
		byIP:      make(map[string]*entry),
	}
}

// CheckLogin checks whether a login attempt is allowed. It does NOT record
// the attempt; call RecordFailure or RecordSuccess after checking the
// password.
func (l *Limiter) CheckLogin(account, ip string) LimitResult {
	now := l.clock.Now()
	accountKey := l.hashKey("login:acct:", normalizeAccount(account))
	ipKey := l.hashKey("login:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if e := l.byAccount[accountKey]; e != nil {
		if !e.lockedAt.IsZero() {
			elapsed := now.Sub(e.lockedAt)
			if elapsed < l.config.Lockout {
				return LimitResult{
					Allowed:    false,
					RetryAfter: l.config.Lockout - elapsed,
					Reason:     "lockout",
				}
			}
			// Lockout expired; allow this request, reset happens on record.
		} else if e.count >= l.config.MaxAttempts {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.Lockout,
				Reason:     "max_attempts",
			}
		}
	}

	if e := l.byIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordFailure records a failed login. Returns true if this failure
// triggered the account lockout.
func (l *Limiter) RecordFailure(account, ip string) (lockedOut bool) {
	now := l.clock.Now()
	accountKey := l.hashKey("login:acct:", normalizeAccount(account))

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byAccount[accountKey]
	switch {
	case e == nil:
		l.byAccount[accountKey] = &entry{count: 1, firstAt: now, lastAt: now}
	case !e.lockedAt.IsZero() && now.Sub(e.lockedAt) >= l.config.Lockout:
		// Lockout expired, reset
		l.byAccount[accountKey] = &entry{count: 1, firstAt: now, lastAt: now}
	default:
		e.count++
		e.lastAt = now
		if e.count >= l.config.MaxAttempts && e.lockedAt.IsZero() {
			e.lockedAt = now
			lockedOut = true
		}
	}

	l.recordIP(ip, now)
	return lockedOut
}

// RecordSuccess clears the failure counter after a successful login. The
// IP counter still ticks so a single address cannot hammer many accounts.
func (l *Limiter) RecordSuccess(account, ip string) {
	now := l.clock.Now()
	accountKey := l.hashKey("login:acct:", normalizeAccount(account))

	l.mu.Lock()
	delete(l.byAccount, accountKey)
	l.recordIP(ip, now)
	l.mu.Unlock()
}

// recordIP must be called with l.mu held.
func (l *Limiter) recordIP(ip string, now time.Time) {
	ipKey := l.hashKey("login:ip:", ip)
	e := l.byIP[ipKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.byIP[ipKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}
}

// Prune drops entries that can no longer influence a limit decision.
func (l *Limiter) Prune() {
	now := l.clock.Now()
	maxAge := l.config.Lockout + time.Hour

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.byAccount {
		if now.Sub(e.lastAt) > maxAge {
			delete(l.byAccount, k)
		}
	}
	for k, e := range l.byIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byIP, k)
		}
	}
}

func (l *Limiter) hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

// normalizeAccount lowercases the account name to prevent case-based bypass.
func normalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

// ClientIP extracts the client IP from a request. X-Forwarded-For is
// ignored; this server is expected to face clients directly.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
			return r.RemoteAddr
		}
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			candidate := r.RemoteAddr[:idx]
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
		return r.RemoteAddr
	}
	return ip
}

// SanitizeAccount masks an account name for logging.
func SanitizeAccount(account string) string {
	account = normalizeAccount(account)
	if strings.Contains(account, "@") {
		parts := strings.Split(account, "@")
		if len(parts[0]) > 2 {
			return parts[0][:2] + "***@" + parts[1]
		}
		return "***@" + parts[1]
	}
	if len(account) > 2 {
		return account[:2] + "***"
	}
	return "***"
}

// LogRateLimitExceeded logs a rate limit event with sanitized account name.
func LogRateLimitExceeded(account, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("account", SanitizeAccount(account)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Login rate limit exceeded")
}
