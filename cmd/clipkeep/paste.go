package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/clipkeep/internal/rpc"
)

func newPasteCmd() *cobra.Command {
	cmd := clientCmd("paste <id>", "Put a history record back on the clipboard and paste it", cobra.ExactArgs(1),
		func(f *pflag.FlagSet) {
			f.Bool("copy-only", false, "only copy to the clipboard, never send the paste keystroke")
		},
		func(v *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				if err := c.PasteRecord(ctx, id, v.GetBool("copy-only")); err != nil {
					return fmt.Errorf("paste: %w", err)
				}
				return nil
			})
		})
	cmd.Long = `Writes the record to the system clipboard. When auto-paste is enabled in the
daemon settings and a paste command is configured, the daemon then sends the
paste keystroke to the focused window.

The record is captured again by the monitor, which moves it to the top of
the history when deduplication is on.`
	return cmd
}
