package store

import (
	"context"
	"errors"
	"time"

	"github.com/watchfire-io/dropdeck/internal/client"
)

// MaxDiagnostics bounds the number of retained diagnostics.
const MaxDiagnostics = 50

// Operation names used in diagnostics.
const (
	OpRefreshStatus = "refresh status"
	OpRefreshConfig = "refresh config"
	OpRefreshLogs   = "refresh logs"
	OpSaveConfig    = "save config"
	OpTriggerRun    = "trigger run"
	OpUploadFile    = "upload file"
)

// ErrNoDraft is recorded when SaveConfig is given no draft.
var ErrNoDraft = errors.New("no config draft to save")

// Diagnostic records one absorbed failure.
type Diagnostic struct {
	Seq        uint64 // increases by one per recorded failure
	Op         string
	Err        error
	StatusCode int // 0 when no HTTP response was received
	At         time.Time
}

// Diagnostics returns the retained diagnostics, most recent first.
func (s *Store) Diagnostics() []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diags.list()
}

// DiagnosticSeq returns the sequence number of the most recent diagnostic,
// or 0 when none has been recorded.
func (s *Store) DiagnosticSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diagSeq
}

// DiagnosticsSince returns diagnostics for op recorded after seq, most
// recent first. An empty op matches every operation.
func (s *Store) DiagnosticsSince(seq uint64, op string) []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Diagnostic
	for _, d := range s.diags.list() {
		if d.Seq <= seq {
			break
		}
		if op == "" || d.Op == op {
			out = append(out, d)
		}
	}
	return out
}

// LastDiagnostic returns the most recent diagnostic, if any.
func (s *Store) LastDiagnostic() (Diagnostic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.diags.list()
	if len(list) == 0 {
		return Diagnostic{}, false
	}
	return list[0], true
}

func (s *Store) recordFailure(op string, err error) {
	d := Diagnostic{Op: op, Err: err, StatusCode: client.StatusCodeOf(err), At: s.now()}

	s.mu.Lock()
	s.diagSeq++
	d.Seq = s.diagSeq
	s.diags.push(d)
	s.mu.Unlock()

	attrs := []any{"op", op, "status", d.StatusCode, "err", err}
	var rerr *client.RemoteRequestError
	if errors.As(err, &rerr) {
		attrs = append(attrs, "request", rerr.Detail())
	}
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("remote request cancelled", attrs...)
	} else {
		s.logger.Warn("remote request failed", attrs...)
	}
	s.subs.notify(Event{Slice: SliceDiagnostics})
}

// diagnosticRing is a fixed-size ring buffer. Callers hold Store.mu.
type diagnosticRing struct {
	buf  []Diagnostic
	next int
	full bool
}

func newDiagnosticRing(size int) *diagnosticRing {
	return &diagnosticRing{buf: make([]Diagnostic, size)}
}

func (r *diagnosticRing) push(d Diagnostic) {
	r.buf[r.next] = d
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *diagnosticRing) list() []Diagnostic {
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]Diagnostic, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
