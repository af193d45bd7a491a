package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/watchfire-io/dropdeck/internal/config"
	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/store"
)

// secretMask replaces credentials in "config show" output.
const secretMask = "********"

// readPassword reads a secret without echo. Tests replace it.
var readPassword = func() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("--secret needs an interactive terminal")
	}
	return term.ReadPassword(fd)
}

// configKey is one assignable attribute for "config set".
type configKey struct {
	name string
	set  func(*models.Config, string) error
}

func stringKey(name string, field func(*models.Config) *string) configKey {
	return configKey{name: name, set: func(c *models.Config, v string) error {
		*field(c) = v
		return nil
	}}
}

var configKeys = []configKey{
	stringKey("monitor_folder", func(c *models.Config) *string { return &c.MonitorFolder }),
	stringKey("wecom.corpid", func(c *models.Config) *string { return &c.WeCom.CorpID }),
	stringKey("wecom.agentid", func(c *models.Config) *string { return &c.WeCom.AgentID }),
	stringKey("wecom.secret", func(c *models.Config) *string { return &c.WeCom.Secret }),
	stringKey("wecom.touser", func(c *models.Config) *string { return &c.WeCom.ToUser }),
	stringKey("wecom.toparty", func(c *models.Config) *string { return &c.WeCom.ToParty }),
	stringKey("wecom.token", func(c *models.Config) *string { return &c.WeCom.Token }),
	stringKey("wecom.aes_key", func(c *models.Config) *string { return &c.WeCom.AESKey }),
	{name: "schedule.enabled", set: func(c *models.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("schedule.enabled: %q is not a boolean", v)
		}
		c.Schedule.Enabled = b
		return nil
	}},
	stringKey("schedule.time", func(c *models.Config) *string { return &c.Schedule.Time }),
	stringKey("schedule.frequency", func(c *models.Config) *string { return &c.Schedule.Frequency }),
}

func configKeyNames() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.name
	}
	return names
}

// applyAssignments applies "key=value" pairs to cfg.
func applyAssignments(cfg *models.Config, pairs []string) error {
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid assignment %q (expected key=value)", pair)
		}
		name = strings.TrimSpace(name)
		found := false
		for _, k := range configKeys {
			if k.name == name {
				if err := k.set(cfg, value); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown key %q (known: %s)", name, strings.Join(configKeyNames(), ", "))
		}
	}
	return nil
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the engine configuration",
	}
	cmd.AddCommand(newConfigApplyCmd(opts))
	cmd.AddCommand(newConfigExportCmd(opts))
	cmd.AddCommand(newConfigSetCmd(opts))
	cmd.AddCommand(newConfigShowCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		reveal bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the engine configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.ParseFormat(format)
			if err != nil {
				return err
			}
			sess, err := openSession(opts, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			cfg, err := fetchConfig(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if !reveal {
				maskSecrets(cfg)
			}
			return config.WriteDraft(cmd.OutOrStdout(), cfg, f)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", string(config.FormatYAML), "output format: yaml, toml or json")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "show credentials in clear")
	return cmd
}

func newConfigExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the engine configuration to a draft file",
		Long: `Write the engine configuration, credentials included, to a draft file.
The format follows the extension: .toml, .json, otherwise YAML.
Edit the file and send it back with "dropdeck config apply".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			cfg, err := fetchConfig(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if err := config.ExportDraft(args[0], cfg); err != nil {
				return fmt.Errorf("failed to export config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported config to %s (%s).\n", args[0], config.FormatFromPath(args[0]))
			return nil
		},
	}
}

func newConfigApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		format  string
		replace bool
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "apply <file|->",
		Short: "Save a draft file as the engine configuration",
		Long: `Save a draft file as the engine configuration.

By default the file is layered over the current configuration, so it only
needs the keys it changes. With --replace the file is the whole document and
omitted keys take the engine defaults. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			draft, err := loadApplyDraft(cmd, sess, args[0], format, replace)
			if err != nil {
				return err
			}
			return saveDraft(cmd, sess, draft, force)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatYAML), "stdin format: yaml, toml or json")
	cmd.Flags().BoolVar(&replace, "replace", false, "treat the file as the complete configuration")
	cmd.Flags().BoolVar(&force, "force", false, "save even when the draft has problems")
	return cmd
}

func newConfigSetCmd(opts *rootOptions) *cobra.Command {
	var (
		secret bool
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "set [key=value...]",
		Short: "Change individual configuration values",
		Long: `Change individual configuration values and save.

Keys: ` + strings.Join(configKeyNames(), ", ") + `

Use --secret to type the WeCom secret without echo.`,
		Example: `  dropdeck config set monitor_folder=/srv/drop schedule.enabled=true schedule.time=08:30
  dropdeck config set --secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !secret {
				return errors.New("nothing to set: pass key=value pairs or --secret")
			}

			sess, err := openSession(opts, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			draft, err := fetchConfig(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if err := applyAssignments(draft, args); err != nil {
				return err
			}
			if secret {
				fmt.Fprint(cmd.OutOrStdout(), "WeCom secret: ")
				b, err := readPassword()
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("failed to read secret: %w", err)
				}
				draft.WeCom.Secret = strings.TrimSpace(string(b))
			}
			return saveDraft(cmd, sess, draft, force)
		},
	}
	cmd.Flags().BoolVar(&secret, "secret", false, "prompt for the WeCom secret")
	cmd.Flags().BoolVar(&force, "force", false, "save even when the draft has problems")
	return cmd
}

// fetchConfig reads the current config through the Store.
func fetchConfig(ctx context.Context, sess *session) (*models.Config, error) {
	mark := sess.store.DiagnosticSeq()
	sess.store.RefreshConfig(ctx)
	if err := remoteFailure(sess.store, mark, store.OpRefreshConfig); err != nil {
		return nil, err
	}
	cfg, ok := sess.store.Config()
	if !ok {
		return nil, errors.New("engine config unknown")
	}
	return cfg, nil
}

func loadApplyDraft(cmd *cobra.Command, sess *session, path, format string, replace bool) (*models.Config, error) {
	if path == "-" {
		f, err := config.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		if replace {
			return config.ReadDraft(cmd.InOrStdin(), f)
		}
		base, err := fetchConfig(cmd.Context(), sess)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read draft: %w", err)
		}
		if err := config.Unmarshal(f, data, base); err != nil {
			return nil, fmt.Errorf("failed to parse %s draft: %w", f, err)
		}
		return base, nil
	}

	if replace {
		draft, err := config.LoadDraft(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load draft: %w", err)
		}
		return draft, nil
	}
	base, err := fetchConfig(cmd.Context(), sess)
	if err != nil {
		return nil, err
	}
	if err := config.LoadFile(path, base); err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return base, nil
}

// saveDraft validates and saves draft, reporting the outcome.
func saveDraft(cmd *cobra.Command, sess *session, draft *models.Config, force bool) error {
	w := cmd.OutOrStdout()
	if problems := draft.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(w, styleWarning.Render("Warning:")+" "+p.Error())
		}
		if !force {
			return fmt.Errorf("draft has %d problem(s); fix them or pass --force", len(problems))
		}
	}

	out, err := sess.dispatcher.SaveConfig(cmd.Context(), draft)
	if err != nil {
		return err
	}
	if err := outcomeError(out); err != nil {
		return err
	}
	fmt.Fprintln(w, styleSuccess.Render("Config saved."))
	return nil
}

func maskSecrets(cfg *models.Config) {
	for _, s := range []*string{&cfg.WeCom.Secret, &cfg.WeCom.Token, &cfg.WeCom.AESKey} {
		if *s != "" {
			*s = secretMask
		}
	}
}
