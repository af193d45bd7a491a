package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/watchfire-io/dropdeck/internal/buildinfo"
	"github.com/watchfire-io/dropdeck/internal/client"
	"github.com/watchfire-io/dropdeck/internal/config"
	"github.com/watchfire-io/dropdeck/internal/dispatch"
	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/store"
	"github.com/watchfire-io/dropdeck/internal/telemetry"
)

// session is one console session: a Store over the Transport Client plus
// the dispatcher every surface mutates through.
type session struct {
	settings   *models.Settings
	serverURL  string
	logger     *slog.Logger
	logFile    io.Closer
	tracker    *telemetry.Tracker
	store      *store.Store
	dispatcher *dispatch.Dispatcher
}

type sessionOptions struct {
	// interactive sessions never log to stderr; the TUI owns the terminal.
	interactive bool
	// logLines overrides the configured GET /logs window when > 0.
	logLines int
}

func openSession(opts *rootOptions, so sessionOptions) (*session, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	raw := settings.Server.URL
	if opts.server != "" {
		raw = opts.server
	}
	serverURL, err := config.NormalizeServerURL(raw)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := config.SetupLogging(config.LogOptions{
		Stderr: opts.verbose && !so.interactive,
		Debug:  opts.verbose,
	})
	if err != nil {
		return nil, err
	}

	if settings.Telemetry.Enabled {
		if _, err := config.EnsureInstallID(settings); err != nil {
			logger.Warn("failed to assign install id", "err", err)
		}
	}
	tracker, err := telemetry.New(settings.Telemetry)
	if err != nil {
		logger.Warn("telemetry disabled", "err", err)
		tracker = &telemetry.Tracker{}
	}

	logLines := settings.Server.LogLines
	if so.logLines > 0 {
		logLines = so.logLines
	}
	c := client.New(serverURL, client.WithLogLines(logLines))
	st := store.New(c, store.WithLogger(logger), store.WithTracker(tracker))

	logger.Info("session started", "server", c.BaseURL(), "version", buildinfo.Version, "telemetry", tracker.Enabled())

	return &session{
		settings:   settings,
		serverURL:  c.BaseURL(),
		logger:     logger,
		logFile:    logFile,
		tracker:    tracker,
		store:      st,
		dispatcher: dispatch.New(st),
	}, nil
}

// Close flushes telemetry and the log file.
func (s *session) Close() {
	if err := s.tracker.Close(); err != nil {
		s.logger.Debug("telemetry flush failed", "err", err)
	}
	s.logger.Info("session ended")
	_ = s.logFile.Close()
}

// remoteFailure turns the most recent diagnostic for op into an error.
func remoteFailure(st *store.Store, since uint64, op string) error {
	failures := st.DiagnosticsSince(since, op)
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", op, failures[0].Err)
}

// outcomeError converts a dispatcher outcome to an error for CLI output.
func outcomeError(out dispatch.Outcome) error {
	if out.Changed || out.Failure == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", out.Failure.Op, out.Failure.Err)
}
