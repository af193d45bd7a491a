package tui

import (
	"github.com/watchfire-io/dropdeck/internal/dispatch"
	"github.com/watchfire-io/dropdeck/internal/store"
)

// StoreChangedMsg signals that a Store slice changed.
type StoreChangedMsg struct {
	Slice store.Slice
}

// ConfigSavedMsg carries the outcome of a settings save.
type ConfigSavedMsg struct {
	Outcome dispatch.Outcome
}

// RunSettledMsg carries the outcome of "run now".
type RunSettledMsg struct {
	Outcome dispatch.Outcome
}

// UploadedMsg signals a successful upload.
type UploadedMsg struct {
	Name string
}

// UploadFailedMsg carries the remote's upload failure message.
type UploadFailedMsg struct {
	Name string
	Err  error
}

// ErrorMsg carries an error to display.
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the error display.
type ClearErrorMsg struct{}

// ClearSavedMsg clears the transient notice ("Saved", "Uploaded ...").
type ClearSavedMsg struct{}
