package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchfire-io/dropdeck/internal/client"
	"github.com/watchfire-io/dropdeck/internal/config"
	"github.com/watchfire-io/dropdeck/internal/store"
)

func TestStart_CallsImmediately(t *testing.T) {
	called := make(chan struct{}, 1)
	p := New("status", time.Hour, func(ctx context.Context) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	stop := p.Start(context.Background())
	defer stop()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("poller did not refresh on activation")
	}
}

func TestStart_TicksUntilStopped(t *testing.T) {
	var n atomic.Int32
	p := New("logs", 10*time.Millisecond, func(ctx context.Context) { n.Add(1) })

	stop := p.Start(context.Background())
	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)
	stop()

	after := n.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, n.Load(), "poller kept running after stop")
}

func TestStop_Idempotent(t *testing.T) {
	p := New("status", 10*time.Millisecond, func(ctx context.Context) {})
	stop := p.Start(context.Background())
	stop()
	assert.NotPanics(t, stop)
}

func TestStop_WaitsForInFlightCall(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool
	p := New("status", time.Hour, func(ctx context.Context) {
		close(entered)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
	})

	stop := p.Start(context.Background())
	<-entered
	stop()
	assert.True(t, finished.Load())
}

func TestSlowCallDropsTicks(t *testing.T) {
	var n atomic.Int32
	p := New("status", 5*time.Millisecond, func(ctx context.Context) {
		n.Add(1)
		time.Sleep(30 * time.Millisecond)
	})
	stop := p.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	stop()

	// Queued ticks would push this toward 20.
	assert.LessOrEqual(t, n.Load(), int32(5))
}

func TestNew_DefaultInterval(t *testing.T) {
	p := New("status", 0, func(ctx context.Context) {})
	assert.Equal(t, StatusInterval, p.interval)
	assert.Equal(t, "status", p.name)
}

func TestFailedPollDoesNotStopNextTick(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"running": true, "next_run": "2024-01-01T09:00:00Z"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := store.New(client.New(srv.URL), store.WithLogger(config.DiscardLogger()))
	p := New("status", 10*time.Millisecond, s.RefreshStatus)

	stop := p.Start(context.Background())
	assert.Eventually(t, func() bool { return hits.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	stop()

	status, ok := s.Status()
	require.True(t, ok)
	assert.True(t, status.Running)
	assert.Equal(t, "2024-01-01T09:00:00Z", *status.NextRun)
	assert.NotEmpty(t, s.Diagnostics())
}

func TestScope(t *testing.T) {
	var status, logs atomic.Int32
	dashboard := NewScope(New("status", 10*time.Millisecond, func(ctx context.Context) { status.Add(1) }))
	logView := NewScope(New("logs", 10*time.Millisecond, func(ctx context.Context) { logs.Add(1) }))

	ctx := context.Background()
	Switch(ctx, nil, dashboard)
	assert.True(t, dashboard.Active())
	assert.Eventually(t, func() bool { return status.Load() >= 2 }, time.Second, 5*time.Millisecond)

	Switch(ctx, dashboard, logView)
	assert.False(t, dashboard.Active())
	assert.True(t, logView.Active())

	frozen := status.Load()
	assert.Eventually(t, func() bool { return logs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, frozen, status.Load(), "inactive view kept polling")

	// Re-activating an active scope does not start a second loop.
	logView.Activate(ctx)
	logView.Deactivate()
	assert.False(t, logView.Active())
	logView.Deactivate()
}
