// Package poller runs fixed-interval refresh loops owned by a view.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/watchfire-io/dropdeck/internal/models"
)

// Default refresh periods.
const (
	StatusInterval = models.DefaultPollInterval
	LogsInterval   = models.DefaultPollInterval
)

// Func is one refresh. It must absorb its own failures.
type Func func(ctx context.Context)

// Poller calls a Func immediately on Start and then once per interval until
// stopped. A tick that arrives while the previous call is still running is
// dropped.
type Poller struct {
	name     string
	interval time.Duration
	fn       Func
}

// New creates a poller. interval <= 0 uses the default period.
func New(name string, interval time.Duration, fn Func) *Poller {
	if interval <= 0 {
		interval = models.DefaultPollInterval
	}
	return &Poller{name: name, interval: interval, fn: fn}
}

// Start launches the loop. The returned stop cancels the loop and waits
// for it to exit, including any call in flight. stop is safe to call more
// than once.
func (p *Poller) Start(parent context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		p.loop(ctx)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			slog.Debug("poller stopped", "poller", p.name)
		})
	}
}

func (p *Poller) loop(ctx context.Context) {
	slog.Debug("poller started", "poller", p.name, "interval", p.interval)
	p.fn(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.fn(ctx)
			// Drop a tick that fired during a slow call.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}
