package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/clipkeep/internal/rpc"
	"go.klb.dev/clipkeep/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the daemon's runtime settings",
		Long: `Runtime settings are stored in settings.toml under the daemon's data dir and
take effect without a restart (except poll_interval). Keys:

  history_limit   maximum number of non-favorite records kept
  deduplicate     move re-copied content to the top instead of adding it again
  poll_interval   clipboard poll period, e.g. 500ms
  paste_command   shell command that sends the paste keystroke
  auto_paste      send the keystroke after putting a record on the clipboard`,
	}
	cmd.AddCommand(newSettingsGetCmd(), newSettingsSetCmd())
	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return clientCmd("get", "Print the current settings", cobra.NoArgs,
		func(f *pflag.FlagSet) {
			f.Bool("json", false, "output raw JSON")
		},
		func(v *viper.Viper, _ []string) error {
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				vals, err := c.GetSettings(ctx)
				if err != nil {
					return fmt.Errorf("get settings: %w", err)
				}
				if v.GetBool("json") {
					return printJSON(vals)
				}
				printSettings(vals)
				return nil
			})
		})
}

func printSettings(vals settings.Values) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "history_limit\t%d\n", vals.HistoryLimit)
	fmt.Fprintf(w, "deduplicate\t%v\n", vals.Deduplicate)
	fmt.Fprintf(w, "poll_interval\t%s\n", vals.PollInterval)
	fmt.Fprintf(w, "paste_command\t%s\n", vals.PasteCommand)
	fmt.Fprintf(w, "auto_paste\t%v\n", vals.AutoPaste)
	_ = w.Flush()
}

func newSettingsSetCmd() *cobra.Command {
	return clientCmd("set <key> <value>...", "Change one or more settings", settingsArgs, nil,
		func(v *viper.Viper, args []string) error {
			p, err := parsePatch(args)
			if err != nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				vals, err := c.UpdateSettings(ctx, p)
				if err != nil {
					return fmt.Errorf("update settings: %w", err)
				}
				printSettings(vals)
				return nil
			})
		})
}

func settingsArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return fmt.Errorf("expected key value pairs, got %d args", len(args))
	}
	return nil
}

// parsePatch turns alternating key value arguments into a settings.Patch.
func parsePatch(args []string) (settings.Patch, error) {
	var p settings.Patch
	for i := 0; i+1 < len(args); i += 2 {
		key, val := strings.ReplaceAll(strings.ToLower(args[i]), "-", "_"), args[i+1]
		switch key {
		case "history_limit":
			n, err := strconv.Atoi(val)
			if err != nil {
				return p, fmt.Errorf("history_limit: %w", err)
			}
			p.HistoryLimit = &n
		case "deduplicate":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return p, fmt.Errorf("deduplicate: %w", err)
			}
			p.Deduplicate = &b
		case "poll_interval":
			d, err := time.ParseDuration(val)
			if err != nil {
				return p, fmt.Errorf("poll_interval: %w", err)
			}
			p.PollInterval = &d
		case "paste_command":
			s := val
			p.PasteCommand = &s
		case "auto_paste":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return p, fmt.Errorf("auto_paste: %w", err)
			}
			p.AutoPaste = &b
		default:
			return p, fmt.Errorf("unknown setting %q", args[i])
		}
	}
	return p, nil
}
