package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// GaugeSnapshot is a point-in-time view of the in-process auth state.
type GaugeSnapshot struct {
	BlockedIPs        int
	TrackedIPs        int
	CacheSize         int
	MemoryGuardActive bool
}

// RegisterGauges exposes the values returned by snapshot as observable gauges.
// snapshot is called once per collection.
func RegisterGauges(
	meterProvider metric.MeterProvider,
	namespace string,
	snapshot func() GaugeSnapshot,
) error {
	meter := meterProvider.Meter(namespace)

	blocked, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_blocked_ips", namespace),
		metric.WithDescription("Number of client IPs currently blocked"),
	)
	if err != nil {
		return fmt.Errorf("failed to create blocked ips gauge: %w", err)
	}

	tracked, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_tracked_ips", namespace),
		metric.WithDescription("Number of client IPs with rate limit state"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tracked ips gauge: %w", err)
	}

	cacheSize, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_auth_cache_entries", namespace),
		metric.WithDescription("Number of entries in the login outcome cache"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache size gauge: %w", err)
	}

	memoryGuard, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_memory_guard_active", namespace),
		metric.WithDescription("1 when requests are shed because of memory pressure"),
	)
	if err != nil {
		return fmt.Errorf("failed to create memory guard gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := snapshot()
		o.ObserveInt64(blocked, int64(s.BlockedIPs))
		o.ObserveInt64(tracked, int64(s.TrackedIPs))
		o.ObserveInt64(cacheSize, int64(s.CacheSize))
		var guard int64
		if s.MemoryGuardActive {
			guard = 1
		}
		o.ObserveInt64(memoryGuard, guard)
		return nil
	}, blocked, tracked, cacheSize, memoryGuard)
	if err != nil {
		return fmt.Errorf("failed to register gauge callback: %w", err)
	}
	return nil
}
