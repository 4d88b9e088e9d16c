// Package ratelimit implements the per-IP guard in front of the authentication endpoints.
//
// Each policy keeps a sliding window log of request timestamps per client IP.
// An IP that exceeds any policy's quota is blocked for every policy until the
// block expires, regardless of what its windows would admit.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Reason is the machine-readable cause of a denial.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonRateLimited    Reason = "RATE_LIMITED"
	ReasonBlocked        Reason = "IP_BLOCKED"
	ReasonMemoryPressure Reason = "MEMORY_PRESSURE"
)

// Policy is a quota of MaxRequests per sliding Window.
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of Allow. RetryAfter is set for denials.
type Decision struct {
	Allowed    bool
	Reason     Reason
	RetryAfter time.Duration
}

// Stats is a snapshot of the guard's tables.
type Stats struct {
	BlockedIPs        int  `json:"blocked_ips"`
	TrackedIPs        int  `json:"tracked_ips"`
	MemoryGuardActive bool `json:"memory_guard_active"`
}

// Config configures an IPGuard.
type Config struct {
	Enabled         bool
	BlockDuration   time.Duration
	CleanupInterval time.Duration
	// MemoryThreshold is the used-memory percentage above which every request is denied.
	// Zero or a nil probe disables the check.
	MemoryThreshold float64
}

type windowKey struct {
	policy string
	ip     string
}

type window struct {
	hits   []time.Time
	length time.Duration
}

// IPGuard is safe for concurrent use.
type IPGuard struct {
	cfg    Config
	probe  MemoryProbe
	logger *slog.Logger
	nowFn  func() time.Time

	mu          sync.Mutex
	windows     map[windowKey]*window
	blocks      map[string]time.Time
	lastCleanup time.Time
}

// NewIPGuard creates a guard. probe may be nil when no memory signal is available.
func NewIPGuard(cfg Config, probe MemoryProbe, logger *slog.Logger) *IPGuard {
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &IPGuard{
		cfg:         cfg,
		probe:       probe,
		logger:      logger,
		nowFn:       time.Now,
		windows:     make(map[windowKey]*window),
		blocks:      make(map[string]time.Time),
		lastCleanup: time.Now(),
	}
}

// SetNowFunc replaces the clock. Intended for tests.
func (g *IPGuard) SetNowFunc(fn func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nowFn = fn
	g.lastCleanup = fn()
}

// Allow checks the IP against policy and records the request when admitted.
//
// The block table is authoritative: a blocked IP is always denied. Any other
// internal failure admits the request.
func (g *IPGuard) Allow(ctx context.Context, policy Policy, clientIP string) (decision Decision) {
	if !g.cfg.Enabled {
		return Decision{Allowed: true}
	}

	ip := NormalizeIP(clientIP)

	if d, blocked := g.blockedDecision(ip); blocked {
		return d
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("ip guard failure, admitting request",
				slog.String("policy", policy.Name),
				slog.Any("panic", r),
			)
			decision = Decision{Allowed: true}
		}
	}()

	if g.memoryPressure(ctx) {
		return Decision{Allowed: false, Reason: ReasonMemoryPressure, RetryAfter: time.Minute}
	}

	return g.record(policy, ip)
}

func (g *IPGuard) blockedDecision(ip string) (Decision, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	until, ok := g.blocks[ip]
	if !ok {
		return Decision{}, false
	}
	if !now.Before(until) {
		delete(g.blocks, ip)
		return Decision{}, false
	}
	return Decision{Allowed: false, Reason: ReasonBlocked, RetryAfter: until.Sub(now)}, true
}

func (g *IPGuard) record(policy Policy, ip string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	g.maybeCleanupLocked(now)

	key := windowKey{policy: policy.Name, ip: ip}
	w, ok := g.windows[key]
	if !ok {
		w = &window{length: policy.Window}
		g.windows[key] = w
	}
	w.length = policy.Window
	w.hits = trim(w.hits, now.Add(-policy.Window))

	if len(w.hits) >= policy.MaxRequests {
		until := now.Add(g.cfg.BlockDuration)
		g.blocks[ip] = until
		g.logger.Warn("client ip blocked",
			slog.String("policy", policy.Name),
			slog.String("client_ip", ip),
			slog.Int("max_requests", policy.MaxRequests),
			slog.Duration("window", policy.Window),
			slog.Time("blocked_until", until),
		)
		return Decision{Allowed: false, Reason: ReasonRateLimited, RetryAfter: g.cfg.BlockDuration}
	}

	w.hits = append(w.hits, now)
	return Decision{Allowed: true}
}

func (g *IPGuard) memoryPressure(ctx context.Context) bool {
	if g.probe == nil || g.cfg.MemoryThreshold <= 0 {
		return false
	}
	used, err := g.probe.UsedPercent(ctx)
	if err != nil {
		return false
	}
	return used >= g.cfg.MemoryThreshold
}

// Cleanup purges idle windows and expired blocks and returns how many entries were removed.
func (g *IPGuard) Cleanup() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cleanupLocked(g.nowFn())
}

func (g *IPGuard) maybeCleanupLocked(now time.Time) {
	if now.Sub(g.lastCleanup) < g.cfg.CleanupInterval {
		return
	}
	g.cleanupLocked(now)
}

func (g *IPGuard) cleanupLocked(now time.Time) int {
	removed := 0
	for key, w := range g.windows {
		w.hits = trim(w.hits, now.Add(-w.length))
		if len(w.hits) == 0 {
			delete(g.windows, key)
			removed++
		}
	}
	for ip, until := range g.blocks {
		if !now.Before(until) {
			delete(g.blocks, ip)
			removed++
		}
	}
	g.lastCleanup = now
	return removed
}

// Stats returns the current table sizes. Expired blocks are not counted.
func (g *IPGuard) Stats(ctx context.Context) Stats {
	g.mu.Lock()
	now := g.nowFn()
	blocked := 0
	for _, until := range g.blocks {
		if now.Before(until) {
			blocked++
		}
	}
	ips := make(map[string]struct{}, len(g.windows))
	for key := range g.windows {
		ips[key.ip] = struct{}{}
	}
	g.mu.Unlock()

	return Stats{
		BlockedIPs:        blocked,
		TrackedIPs:        len(ips),
		MemoryGuardActive: g.cfg.Enabled && g.memoryPressure(ctx),
	}
}

// trim drops the leading timestamps at or before cutoff. hits is ordered.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

// NormalizeIP keys IPv4 clients by address and IPv6 clients by their /64 prefix,
// so rotating addresses inside one allocation does not reset the quota.
func NormalizeIP(raw string) string {
	ip := net.ParseIP(raw)
	if ip == nil {
		return raw
	}
	if ip.To4() != nil {
		return ip.String()
	}
	return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}
