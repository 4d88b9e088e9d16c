package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryProbe reports host memory usage as a percentage.
type MemoryProbe interface {
	UsedPercent(ctx context.Context) (float64, error)
}

// SystemMemoryProbe reads virtual memory statistics through gopsutil and
// reuses a reading for ttl to keep the probe off the hot path.
type SystemMemoryProbe struct {
	ttl   time.Duration
	read  func(ctx context.Context) (float64, error)
	nowFn func() time.Time

	mu      sync.Mutex
	value   float64
	err     error
	readAt  time.Time
	hasRead bool
}

// NewSystemMemoryProbe creates a probe caching each reading for ttl.
func NewSystemMemoryProbe(ttl time.Duration) *SystemMemoryProbe {
	return &SystemMemoryProbe{
		ttl:   ttl,
		read:  readVirtualMemory,
		nowFn: time.Now,
	}
}

func readVirtualMemory(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// UsedPercent returns the cached reading or takes a new one.
func (p *SystemMemoryProbe) UsedPercent(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowFn()
	if p.hasRead && now.Sub(p.readAt) < p.ttl {
		return p.value, p.err
	}

	p.value, p.err = p.read(ctx)
	p.readAt = now
	p.hasRead = true
	return p.value, p.err
}
