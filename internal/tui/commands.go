package tui

import (
	"context"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchfire-io/dropdeck/internal/dispatch"
	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/store"
)

// Store-driven commands return nil: results arrive as StoreChangedMsg.

func refreshConfigCmd(ctx context.Context, s *store.Store) tea.Cmd {
	return func() tea.Msg {
		s.RefreshConfig(ctx)
		return nil
	}
}

func refreshLogsCmd(ctx context.Context, s *store.Store) tea.Cmd {
	return func() tea.Msg {
		s.RefreshLogs(ctx)
		return nil
	}
}

func refreshStatusCmd(ctx context.Context, s *store.Store) tea.Cmd {
	return func() tea.Msg {
		s.RefreshStatus(ctx)
		return nil
	}
}

func saveConfigCmd(ctx context.Context, d *dispatch.Dispatcher, draft *models.Config) tea.Cmd {
	return func() tea.Msg {
		out, err := d.SaveConfig(ctx, draft)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return ConfigSavedMsg{Outcome: out}
	}
}

func runNowCmd(ctx context.Context, d *dispatch.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		out, err := d.RunNow(ctx)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return RunSettledMsg{Outcome: out}
	}
}

func uploadPathCmd(ctx context.Context, d *dispatch.Dispatcher, path string) tea.Cmd {
	return func() tea.Msg {
		name := filepath.Base(path)
		if err := d.UploadPath(ctx, path); err != nil {
			return UploadFailedMsg{Name: name, Err: err}
		}
		return UploadedMsg{Name: name}
	}
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return ClearErrorMsg{}
	})
}

func clearSavedAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return ClearSavedMsg{}
	})
}
