package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"time"
)

// GuardScope separates counters for the flows that accept a secret.
type GuardScope string

const (
	GuardScopeLogin   GuardScope = "login"
	GuardScopeRecover GuardScope = "recover"
)

// GuardPolicy is an exponential backoff: after FreeAttempts failures each
// further failure waits BaseDelay*Multiplier^n, capped at MaxDelay. Counters
// reset after ResetWindow without failures.
type GuardPolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

// CredentialGuard slows down repeated wrong passwords per identity and per
// client IP. Check returns the remaining cooldown, zero when allowed.
type CredentialGuard interface {
	Check(ctx context.Context, scope GuardScope, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope GuardScope, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope GuardScope, identity, ip string) error
}

type NoopCredentialGuard struct{}

func (NoopCredentialGuard) Check(context.Context, GuardScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopCredentialGuard) RegisterFailure(context.Context, GuardScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopCredentialGuard) Reset(context.Context, GuardScope, string, string) error { return nil }

type guardEntry struct {
	fails         int
	lastFailure   time.Time
	cooldownUntil time.Time
}

type InMemoryCredentialGuard struct {
	mu      sync.Mutex
	policy  GuardPolicy
	entries map[string]guardEntry
	now     func() time.Time
}

func NewInMemoryCredentialGuard(policy GuardPolicy) *InMemoryCredentialGuard {
	return &InMemoryCredentialGuard{
		policy:  normalizeGuardPolicy(policy),
		entries: make(map[string]guardEntry),
		now:     time.Now,
	}
}

func (g *InMemoryCredentialGuard) Check(_ context.Context, scope GuardScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var wait time.Duration
	for _, key := range guardKeys(scope, identity, ip) {
		wait = max(wait, g.cooldownLocked(now, key))
	}
	return wait, nil
}

func (g *InMemoryCredentialGuard) RegisterFailure(_ context.Context, scope GuardScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var wait time.Duration
	for _, key := range guardKeys(scope, identity, ip) {
		entry := g.entries[key]
		if entry.lastFailure.IsZero() || now.Sub(entry.lastFailure) > g.policy.ResetWindow {
			entry.fails = 0
		}
		entry.fails++
		entry.lastFailure = now
		delay := g.policy.backoff(entry.fails)
		entry.cooldownUntil = now.Add(delay)
		g.entries[key] = entry
		wait = max(wait, delay)
	}
	return wait, nil
}

func (g *InMemoryCredentialGuard) Reset(_ context.Context, scope GuardScope, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range guardKeys(scope, identity, ip) {
		delete(g.entries, key)
	}
	return nil
}

func (g *InMemoryCredentialGuard) cooldownLocked(now time.Time, key string) time.Duration {
	entry, ok := g.entries[key]
	if !ok {
		return 0
	}
	if now.Sub(entry.lastFailure) > g.policy.ResetWindow {
		delete(g.entries, key)
		return 0
	}
	if !now.Before(entry.cooldownUntil) {
		return 0
	}
	return entry.cooldownUntil.Sub(now)
}

func (p GuardPolicy) backoff(fails int) time.Duration {
	if fails <= p.FreeAttempts {
		return 0
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(fails-p.FreeAttempts-1)))
	if delay > p.MaxDelay || delay < 0 {
		return p.MaxDelay
	}
	return delay
}

// guardKeys hashes the identity so emails and phones never appear in keys.
func guardKeys(scope GuardScope, identity, ip string) []string {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		identity = "anonymous"
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	sum := sha256.Sum256([]byte(identity))
	return []string{
		string(scope) + ":id:" + hex.EncodeToString(sum[:12]),
		string(scope) + ":ip:" + ip,
	}
}

func normalizeGuardPolicy(p GuardPolicy) GuardPolicy {
	if p.FreeAttempts < 0 {
		p.FreeAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = 5 * time.Minute
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = 30 * time.Minute
	}
	return p
}
