package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/clipkeep/internal/rpc"
)

func newStatusCmd() *cobra.Command {
	cmd := clientCmd("status", "Show daemon status", cobra.NoArgs,
		func(f *pflag.FlagSet) {
			f.Bool("json", false, "output raw JSON")
		},
		func(v *viper.Viper, _ []string) error {
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.Status(ctx)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				if v.GetBool("json") {
					return printJSON(resp)
				}
				printStatus(resp, v.GetString("socket"))
				return nil
			})
		})
	cmd.Long = `Displays the running daemon's version, clipboard backend, monitor state,
history size and bound template shortcuts.`
	return cmd
}

func printStatus(resp *rpc.StatusResponse, socket string) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)

	monitoring := "stopped"
	if resp.Monitoring {
		monitoring = "running"
	}
	fmt.Fprintf(w, "Version:\t%s\n", resp.Version)
	fmt.Fprintf(w, "Socket:\t%s\n", socket)
	fmt.Fprintf(w, "Clipboard:\t%s\n", resp.Backend)
	fmt.Fprintf(w, "Monitor:\t%s\n", monitoring)
	fmt.Fprintf(w, "Records:\t%d\n", resp.Records)
	fmt.Fprintf(w, "Subscribers:\t%d\n", resp.Subscribers)
	if resp.StartedAt > 0 {
		t := time.UnixMilli(resp.StartedAt)
		fmt.Fprintf(w, "Started:\t%s (%s)\n", t.UTC().Format(time.RFC3339), fmtAge(t))
	}
	shortcuts := "none"
	if len(resp.Shortcuts) > 0 {
		shortcuts = strings.Join(resp.Shortcuts, ", ")
	}
	fmt.Fprintf(w, "Shortcuts:\t%s\n", shortcuts)
	_ = w.Flush()
}
