// Package tui implements the interactive operator console.
package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchfire-io/dropdeck/internal/dispatch"
	"github.com/watchfire-io/dropdeck/internal/poller"
	"github.com/watchfire-io/dropdeck/internal/store"
)

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) Set(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// Options wires the console to a session.
type Options struct {
	Store          *store.Store
	Dispatcher     *dispatch.Dispatcher
	ServerURL      string
	StatusInterval time.Duration
	LogsInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Dispatcher == nil {
		o.Dispatcher = dispatch.New(o.Store)
	}
	if o.StatusInterval <= 0 {
		o.StatusInterval = poller.StatusInterval
	}
	if o.LogsInterval <= 0 {
		o.LogsInterval = poller.LogsInterval
	}
	return o
}

// Run launches the TUI and blocks until the user quits.
func Run(opts Options) error {
	ref := &programRef{}
	model := NewModel(opts, ref)

	// Store changes arrive on poller and command goroutines. Send from a new
	// goroutine: Update may be waiting on a poller that is mid-notify.
	unsubscribe := opts.Store.Subscribe(func(ev store.Event) {
		go ref.Send(StoreChangedMsg{Slice: ev.Slice})
	})
	defer unsubscribe()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	// Store program reference for goroutine sends
	ref.Set(p)

	final, err := p.Run()
	ref.Clear()
	if m, ok := final.(Model); ok {
		m.shutdown()
	}
	return err
}
