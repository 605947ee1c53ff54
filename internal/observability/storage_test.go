package observability

import (
	"context"
	"testing"

	"gatekeep/internal/models"
	"gatekeep/internal/storage"
	"gatekeep/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstrumentedMemoryStorage(t *testing.T) *InstrumentedStorage {
	t.Helper()

	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{ServiceName: "test"}

	provider, err := Setup(metrics, obs, version.Info{})
	require.NoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)
	t.Cleanup(func() { instrumented.Close() })
	return instrumented
}

func TestInstrumentedStorage_PassThrough(t *testing.T) {
	instrumented := newInstrumentedMemoryStorage(t)
	ctx := context.Background()

	event := models.NewAuditEvent(models.EventKindEgressDenied, "req-1", "203.0.113.9", "http://10.0.0.1/", "private_address")
	require.NoError(t, instrumented.RecordEvent(ctx, event))

	got, err := instrumented.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)

	events, total, err := instrumented.Events(ctx, &models.ListEventsRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, events, 1)

	assert.NoError(t, instrumented.Ping(ctx))
}

func TestInstrumentedStorage_ErrorPassThrough(t *testing.T) {
	instrumented := newInstrumentedMemoryStorage(t)

	_, err := instrumented.GetEvent(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSecurityMetrics(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{ServiceName: "test"}

	provider, err := Setup(metrics, obs, version.Info{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	sm, err := NewSecurityMetrics()
	require.NoError(t, err)

	// counters must accept records without panicking
	ctx := context.Background()
	sm.RecordRateLimitDenial(ctx, false)
	sm.RecordRateLimitDenial(ctx, true)
	sm.RecordEgressDenial(ctx, "private_address")
	sm.RecordEgressFetch(ctx)
}
