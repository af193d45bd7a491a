package telemetry

import (
	"errors"
	"testing"

	"github.com/posthog/posthog-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchfire-io/dropdeck/internal/models"
)

type fakeSink struct {
	messages []posthog.Message
	closed   int
	err      error
}

func (f *fakeSink) Enqueue(m posthog.Message) error {
	f.messages = append(f.messages, m)
	return f.err
}

func (f *fakeSink) Close() error {
	f.closed++
	return nil
}

func TestNew_DisabledByDefault(t *testing.T) {
	tr, err := New(models.NewSettings().Telemetry)
	require.NoError(t, err)
	assert.False(t, tr.Enabled())
	assert.NotPanics(t, func() { tr.Track("run_triggered", nil) })
	assert.NoError(t, tr.Close())
}

func TestNew_EnabledWithoutKeyStaysOff(t *testing.T) {
	tr, err := New(models.TelemetryConfig{Enabled: true, InstallID: "abc"})
	require.NoError(t, err)
	assert.False(t, tr.Enabled())
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	assert.False(t, tr.Enabled())
	assert.NotPanics(t, func() { tr.Track("x", nil) })
	assert.NoError(t, tr.Close())
}

func TestTrack(t *testing.T) {
	sink := &fakeSink{}
	tr := newWithSink(sink, "install-1")

	tr.Track("config_saved", map[string]any{"schedule_enabled": true})

	require.Len(t, sink.messages, 1)
	capture, ok := sink.messages[0].(posthog.Capture)
	require.True(t, ok)
	assert.Equal(t, "install-1", capture.DistinctId)
	assert.Equal(t, "config_saved", capture.Event)
	assert.Equal(t, true, capture.Properties["schedule_enabled"])
	assert.Contains(t, capture.Properties, "version")
	assert.Contains(t, capture.Properties, "os")
}

func TestTrack_EnqueueErrorIgnored(t *testing.T) {
	sink := &fakeSink{err: errors.New("queue full")}
	tr := newWithSink(sink, "install-1")
	assert.NotPanics(t, func() { tr.Track("run_failed", nil) })
}

func TestClose_Once(t *testing.T) {
	sink := &fakeSink{}
	tr := newWithSink(sink, "install-1")
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.Equal(t, 1, sink.closed)
}
