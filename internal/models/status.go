package models

import "time"

// Status is the remote engine's run state served by GET /status.
type Status struct {
	Running bool    `json:"running"`
	NextRun *string `json:"next_run"` // nil when no run is scheduled
}

// Clone returns a deep copy, or nil for a nil status.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}
	cp := *s
	if s.NextRun != nil {
		next := *s.NextRun
		cp.NextRun = &next
	}
	return &cp
}

// nextRunLayouts are tried in order. The engine renders Python datetimes,
// which are not always RFC 3339.
var nextRunLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999",
}

// NextRunLayout renders a parsed next run in local time.
const NextRunLayout = "2006-01-02 15:04:05"

// NextRunLabel is the next run for display: "no schedule" when none is
// set, the local time when NextRun parses, otherwise the raw value.
func (s *Status) NextRunLabel() string {
	if s == nil || s.NextRun == nil {
		return "no schedule"
	}
	if t, ok := s.NextRunTime(); ok {
		return t.Local().Format(NextRunLayout)
	}
	return *s.NextRun
}

// NextRunTime parses NextRun. ok is false when no run is scheduled or the
// value cannot be parsed.
func (s *Status) NextRunTime() (t time.Time, ok bool) {
	if s == nil || s.NextRun == nil || *s.NextRun == "" {
		return time.Time{}, false
	}
	for _, layout := range nextRunLayouts {
		if parsed, err := time.ParseInLocation(layout, *s.NextRun, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
