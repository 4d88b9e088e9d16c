// Package authcache holds recent login outcomes keyed by identity digest.
//
// The cache only short-circuits repeated login reads of the license store.
// It is never consulted when validating a session.
package authcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// Outcome is a cached login decision. License is set for successes,
// Err for rejections.
type Outcome struct {
	Success    bool
	Err        error
	License    *licenseDomain.License
	ComputedAt time.Time
}

// Config sizes the cache. Successes and failures have their own TTL.
type Config struct {
	Size       int
	SuccessTTL time.Duration
	FailureTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Cache is a bounded LRU with per-outcome expiry. Safe for concurrent use.
type Cache struct {
	cfg   Config
	lru   *lru.LRU[string, Outcome]
	nowFn func() time.Time // fixed at construction

	mu            sync.Mutex
	invalidatedAt map[string]time.Time
}

// New creates a cache. The LRU's own expiry is the longer of the two TTLs;
// the per-outcome TTL is enforced on read.
func New(cfg Config) *Cache {
	if cfg.Size <= 0 {
		cfg.Size = 10000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ttl := max(cfg.SuccessTTL, cfg.FailureTTL)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		cfg:           cfg,
		lru:           lru.NewLRU[string, Outcome](cfg.Size, nil, ttl),
		nowFn:         cfg.Now,
		invalidatedAt: make(map[string]time.Time),
	}
}

// Get returns a fresh outcome for digest. Stale entries are removed and reported as a miss.
func (c *Cache) Get(digest string) (Outcome, bool) {
	o, ok := c.lru.Get(digest)
	if !ok {
		return Outcome{}, false
	}

	ttl := c.cfg.FailureTTL
	if o.Success {
		ttl = c.cfg.SuccessTTL
	}
	if c.nowFn().Sub(o.ComputedAt) >= ttl {
		c.lru.Remove(digest)
		return Outcome{}, false
	}

	if o.License != nil {
		o.License = o.License.Clone()
	}
	return o, true
}

// Put stores an outcome. An outcome computed before the last invalidation
// of the same digest is dropped, so a slow login cannot overwrite an
// administrative change it raced with.
func (c *Cache) Put(digest string, o Outcome) {
	if o.ComputedAt.IsZero() {
		o.ComputedAt = c.nowFn()
	}
	if o.License != nil {
		o.License = o.License.Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if at, ok := c.invalidatedAt[digest]; ok {
		if o.ComputedAt.Before(at) {
			return
		}
		delete(c.invalidatedAt, digest)
	}
	c.lru.Add(digest, o)
}

// Invalidate drops the entry for digest.
func (c *Cache) Invalidate(digest string) {
	c.mu.Lock()
	c.invalidatedAt[digest] = c.nowFn()
	if len(c.invalidatedAt) > c.cfg.Size {
		c.pruneInvalidationsLocked()
	}
	c.mu.Unlock()
	c.lru.Remove(digest)
}

// Len returns the number of entries, including ones not yet expired by the LRU.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// pruneInvalidationsLocked forgets invalidation marks older than the longest TTL;
// any outcome computed before them has expired anyway.
func (c *Cache) pruneInvalidationsLocked() {
	cutoff := c.nowFn().Add(-max(c.cfg.SuccessTTL, c.cfg.FailureTTL))
	for digest, at := range c.invalidatedAt {
		if at.Before(cutoff) {
			delete(c.invalidatedAt, digest)
		}
	}
}
