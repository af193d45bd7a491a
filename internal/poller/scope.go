package poller

import (
	"context"
	"sync"
)

// Scope is the set of pollers owned by one view. Pollers run only while the
// scope is active.
type Scope struct {
	mu      sync.Mutex
	pollers []*Poller
	stops   []func()
}

// NewScope groups pollers under one activation.
func NewScope(pollers ...*Poller) *Scope {
	return &Scope{pollers: pollers}
}

// Activate starts every poller in the scope. Activating an active scope
// does nothing.
func (s *Scope) Activate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stops != nil {
		return
	}
	s.stops = make([]func(), 0, len(s.pollers))
	for _, p := range s.pollers {
		s.stops = append(s.stops, p.Start(ctx))
	}
}

// Deactivate stops every poller and waits for them to exit.
func (s *Scope) Deactivate() {
	s.mu.Lock()
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// Active reports whether the scope's pollers are running.
func (s *Scope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops != nil
}

// Switch deactivates from (if any) before activating to (if any), so no
// poller of the previous view outlives the switch.
func Switch(ctx context.Context, from, to *Scope) {
	if from == to {
		if to != nil {
			to.Activate(ctx)
		}
		return
	}
	if from != nil {
		from.Deactivate()
	}
	if to != nil {
		to.Activate(ctx)
	}
}
