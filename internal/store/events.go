package store

import "sync"

// Slice names a part of the Store that changed.
type Slice int

// Slices.
const (
	SliceStatus Slice = iota
	SliceConfig
	SliceLogs
	SliceSync
	SliceDiagnostics
)

func (s Slice) String() string {
	switch s {
	case SliceStatus:
		return "status"
	case SliceConfig:
		return "config"
	case SliceLogs:
		return "logs"
	case SliceSync:
		return "sync"
	case SliceDiagnostics:
		return "diagnostics"
	default:
		return "unknown"
	}
}

// Event announces a change to one slice.
type Event struct {
	Slice Slice
}

// Subscribe registers fn to be called after every change. fn runs on the
// goroutine that applied the change, outside the Store's lock, so it may
// read the Store but must not block. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.subs.add(fn)
}

type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

func (s *subscribers) add(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Event))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
