// Package telemetry sends opt-in, anonymous usage events for console
// mutations. Nothing is sent unless the settings file enables it.
package telemetry

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/posthog/posthog-go"

	"github.com/watchfire-io/dropdeck/internal/buildinfo"
	"github.com/watchfire-io/dropdeck/internal/models"
)

// sink is the part of posthog.Client the tracker uses.
type sink interface {
	Enqueue(posthog.Message) error
	Close() error
}

// Tracker reports events to PostHog. The zero value and a nil *Tracker are
// disabled and safe to use.
type Tracker struct {
	sink       sink
	distinctID string
	closeOnce  sync.Once
}

// New returns a tracker for the given settings. A disabled or keyless
// configuration yields a tracker that drops every event.
func New(cfg models.TelemetryConfig) (*Tracker, error) {
	if !cfg.Enabled || cfg.APIKey == "" || cfg.InstallID == "" {
		return &Tracker{}, nil
	}
	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{Endpoint: cfg.Endpoint})
	if err != nil {
		return nil, err
	}
	return newWithSink(client, cfg.InstallID), nil
}

func newWithSink(s sink, distinctID string) *Tracker {
	return &Tracker{sink: s, distinctID: distinctID}
}

// Enabled reports whether events are sent.
func (t *Tracker) Enabled() bool {
	return t != nil && t.sink != nil
}

// Track enqueues one event. Delivery is asynchronous and best effort.
func (t *Tracker) Track(event string, props map[string]any) {
	if !t.Enabled() {
		return
	}
	p := posthog.NewProperties().
		Set("version", buildinfo.Version).
		Set("os", runtime.GOOS).
		Set("arch", runtime.GOARCH)
	for k, v := range props {
		p.Set(k, v)
	}
	err := t.sink.Enqueue(posthog.Capture{
		DistinctId: t.distinctID,
		Event:      event,
		Properties: p,
	})
	if err != nil {
		slog.Debug("telemetry enqueue failed", "event", event, "err", err)
	}
}

// Close flushes pending events.
func (t *Tracker) Close() error {
	if !t.Enabled() {
		return nil
	}
	var err error
	t.closeOnce.Do(func() { err = t.sink.Close() })
	return err
}
