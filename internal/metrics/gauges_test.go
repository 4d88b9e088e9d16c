package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterGauges(t *testing.T) {
	provider, err := NewProvider("gauge_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	err = RegisterGauges(provider.MeterProvider(), "gauge_test", func() GaugeSnapshot {
		return GaugeSnapshot{BlockedIPs: 3, TrackedIPs: 7, CacheSize: 11, MemoryGuardActive: true}
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	output := w.Body.String()

	assert.Regexp(t, `gauge_test_blocked_ips\{[^}]*\} 3`, output)
	assert.Regexp(t, `gauge_test_tracked_ips\{[^}]*\} 7`, output)
	assert.Regexp(t, `gauge_test_auth_cache_entries\{[^}]*\} 11`, output)
	assert.Regexp(t, `gauge_test_memory_guard_active\{[^}]*\} 1`, output)
}
