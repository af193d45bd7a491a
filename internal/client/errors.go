package client

import (
	"errors"
	"fmt"
)

// DefaultUploadError is the message used when a failed upload response has
// no detail field.
const DefaultUploadError = "Upload failed"

// RemoteRequestError is returned for every failed call to the remote
// service: a non-2xx response, a network failure, or an unreadable body.
type RemoteRequestError struct {
	Op         string // operation name, e.g. "read status"
	Method     string
	Path       string
	StatusCode int    // 0 when no response was received
	Message    string // human-readable reason
	Err        error  // underlying transport error, if any
}

func (e *RemoteRequestError) Error() string {
	return e.Message
}

func (e *RemoteRequestError) Unwrap() error {
	return e.Err
}

// Detail returns a longer description including the request line.
func (e *RemoteRequestError) Detail() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s %s): %d %s", e.Op, e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%s %s): %s", e.Op, e.Method, e.Path, e.Message)
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var rerr *RemoteRequestError
	if errors.As(err, &rerr) {
		return rerr.StatusCode
	}
	return 0
}
