package models

import "strings"

// ErrorMarker flags a log line as an error.
const ErrorMarker = "ERROR"

// LogEntry is one raw line of the remote execution log, formatted by the
// engine as "asctime - LEVEL - message".
type LogEntry string

// Text returns the line without its trailing newline.
func (e LogEntry) Text() string {
	return strings.TrimRight(string(e), "\r\n")
}

// IsError reports whether the line carries the error marker.
func (e LogEntry) IsError() bool {
	return strings.Contains(string(e), ErrorMarker)
}

// LogEntries converts the raw lines of a GET /logs response.
func LogEntries(lines []string) []LogEntry {
	entries := make([]LogEntry, len(lines))
	for i, l := range lines {
		entries[i] = LogEntry(l)
	}
	return entries
}
