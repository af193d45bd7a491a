package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/dropdeck/internal/config"
	"github.com/watchfire-io/dropdeck/internal/models"
)

func newSettingsCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Configure the console",
		Long: `Configure the console's own settings interactively.

This allows you to modify:
  - Engine server URL
  - Status and log refresh intervals
  - Number of log lines requested
  - Anonymous usage reporting

Press Enter to keep the current value for any setting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			if show {
				return printSettings(cmd.OutOrStdout(), settings)
			}
			return runConfigure(cmd.InOrStdin(), cmd.OutOrStdout(), settings)
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the settings without prompting")
	return cmd
}

func printSettings(w io.Writer, s *models.Settings) error {
	path, err := config.GlobalSettingsFile()
	if err != nil {
		return err
	}
	telemetry := "off"
	if s.Telemetry.Enabled {
		telemetry = "on"
	}
	logLines := "engine default"
	if s.Server.LogLines > 0 {
		logLines = strconv.Itoa(s.Server.LogLines)
	}
	rows := [][2]string{
		{"File", path},
		{"Server", s.Server.URL},
		{"Status refresh", s.StatusInterval().String()},
		{"Logs refresh", s.LogsInterval().String()},
		{"Log lines", logLines},
		{"Telemetry", telemetry},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s %s\n", styleLabel.Render(fmt.Sprintf("%-15s", row[0])), styleValue.Render(row[1]))
	}
	return nil
}

func runConfigure(in io.Reader, w io.Writer, settings *models.Settings) error {
	reader := bufio.NewReader(in)
	changed := false

	// Server URL
	if raw := prompt(reader, w, "Server URL", settings.Server.URL); raw != "" {
		url, err := config.NormalizeServerURL(raw)
		if err != nil {
			return err
		}
		if url != settings.Server.URL {
			settings.Server.URL = url
			changed = true
		}
	}

	// Refresh intervals
	for _, f := range []struct {
		label string
		value *int
	}{
		{"Status refresh interval (ms)", &settings.Polling.StatusIntervalMS},
		{"Logs refresh interval (ms)", &settings.Polling.LogsIntervalMS},
		{"Log lines (0 = engine default)", &settings.Server.LogLines},
	} {
		raw := prompt(reader, w, f.label, strconv.Itoa(*f.value))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid value for %s: %s", strings.ToLower(f.label), raw)
		}
		if n != *f.value {
			*f.value = n
			changed = true
		}
	}

	// Telemetry
	fmt.Fprintln(w, "\nUsage reporting:")
	enabled := promptYesNoWithCurrent(reader, w, "Send anonymous usage events?", settings.Telemetry.Enabled)
	if enabled != settings.Telemetry.Enabled {
		settings.Telemetry.Enabled = enabled
		changed = true
	}
	if enabled {
		if key := prompt(reader, w, "  Telemetry API key", settings.Telemetry.APIKey); key != "" && key != settings.Telemetry.APIKey {
			settings.Telemetry.APIKey = key
			changed = true
		}
	}

	if !changed {
		fmt.Fprintln(w, "\nNo changes made.")
		return nil
	}

	if err := config.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if settings.Telemetry.Enabled {
		if _, err := config.EnsureInstallID(settings); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\n"+styleSuccess.Render("Settings updated."))
	return nil
}

// prompt shows the current value and returns the trimmed answer, "" to keep.
func prompt(reader *bufio.Reader, w io.Writer, label, current string) string {
	fmt.Fprintf(w, "%s [%s]: ", label, current)
	answer, _ := reader.ReadString('\n')
	return strings.TrimSpace(answer)
}

// promptYesNoWithCurrent prompts for a yes/no value showing the current value.
func promptYesNoWithCurrent(reader *bufio.Reader, w io.Writer, question string, current bool) bool {
	currentStr := "no"
	if current {
		currentStr = "yes"
	}

	fmt.Fprintf(w, "  %s [%s]: ", question, currentStr)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" {
		return current
	}
	return response == "y" || response == "yes"
}
