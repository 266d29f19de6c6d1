package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/rpc"
	"go.klb.dev/clipkeep/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Browse and edit the clipboard history",
	}
	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryGetCmd(),
		newHistoryImageCmd(),
		newHistoryPathCmd(),
		newHistoryOpenCmd(),
		newHistoryDeleteCmd(),
		newHistoryFavCmd(),
		newHistoryClearCmd(),
	)
	return cmd
}

// clientCmd builds a subcommand that talks to the daemon. Flags are added
// by flags before the socket and config flags.
func clientCmd(use, short string, args cobra.PositionalArgs, flags func(*pflag.FlagSet), run func(v *viper.Viper, args []string) error) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    args,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return run(v, args) },
	}
	if flags != nil {
		flags(cmd.Flags())
	}
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return clientCmd("list", "List history records, newest first", cobra.NoArgs,
		func(f *pflag.FlagSet) {
			f.StringP("search", "s", "", "case-insensitive substring filter")
			f.StringP("kind", "k", "", "only this content kind: text|image|file")
			f.Bool("favorites", false, "only favorites")
			f.IntP("limit", "n", store.DefaultPageSize, "page size")
			f.Int("offset", 0, "records to skip")
			f.Bool("json", false, "output raw JSON")
		},
		func(v *viper.Viper, _ []string) error {
			kind, err := model.ParseKind(v.GetString("kind"))
			if err != nil {
				return err
			}
			q := store.Query{
				Search:        v.GetString("search"),
				Kind:          kind,
				FavoritesOnly: v.GetBool("favorites"),
				Limit:         v.GetInt("limit"),
				Offset:        v.GetInt("offset"),
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				resp, err := c.ListHistory(ctx, q)
				if err != nil {
					return fmt.Errorf("list: %w", err)
				}
				if v.GetBool("json") {
					return printJSON(resp)
				}
				printRecords(resp.Records, resp.Total)
				return nil
			})
		})
}

func printRecords(recs []*model.Record, total int) {
	if len(recs) == 0 {
		fmt.Println("No records.")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tFAV\tKIND\tCOPIED\tPREVIEW\n")
	_, _ = fmt.Fprintf(tw, "--\t---\t----\t------\t-------\n")
	for _, r := range recs {
		fav := ""
		if r.Favorite {
			fav = "*"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, fav, r.Kind(), fmtMillis(r.Timestamp), truncate(r.PreviewText, 60))
	}
	_ = tw.Flush()
	fmt.Printf("\n%d of %d records\n", len(recs), total)
}

func newHistoryGetCmd() *cobra.Command {
	return clientCmd("get <id>", "Print one record's content", cobra.ExactArgs(1),
		func(f *pflag.FlagSet) {
			f.Bool("json", false, "output the full record as JSON")
		},
		func(v *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				rec, err := c.GetRecord(ctx, id)
				if err != nil {
					return fmt.Errorf("get: %w", err)
				}
				if v.GetBool("json") {
					return printJSON(rec)
				}
				if content, ok := rec.Content.(model.Text); ok {
					fmt.Print(content.Text)
					return nil
				}
				fmt.Println(strings.Join(recordPaths(rec), "\n"))
				return nil
			})
		})
}

// recordPaths returns the cached image path or the file list of rec.
func recordPaths(rec *model.Record) []string {
	switch content := rec.Content.(type) {
	case model.Image:
		return []string{content.Path}
	case model.Files:
		return content.Paths
	}
	return nil
}

func newHistoryImageCmd() *cobra.Command {
	return clientCmd("image <id>", "Write an image record's PNG to a file or stdout", cobra.ExactArgs(1),
		func(f *pflag.FlagSet) {
			f.StringP("output", "o", "", "write to this file instead of stdout")
		},
		func(v *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := v.GetString("output")
			if out == "" && isatty.IsTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("refusing to write PNG data to a terminal, use --output or a redirect")
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				data, err := c.GetImage(ctx, id)
				if err != nil {
					return fmt.Errorf("image: %w", err)
				}
				if out == "" {
					_, err = os.Stdout.Write(data)
					return err
				}
				return os.WriteFile(out, data, 0o600)
			})
		})
}

func newHistoryPathCmd() *cobra.Command {
	return clientCmd("path <id>", "Print an image or file record's paths", cobra.ExactArgs(1),
		func(f *pflag.FlagSet) {
			f.Bool("copy", false, "put the paths on the clipboard as text instead of printing them")
		},
		func(v *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				rec, err := c.GetRecord(ctx, id)
				if err != nil {
					return fmt.Errorf("path: %w", err)
				}
				paths := recordPaths(rec)
				if len(paths) == 0 {
					return fmt.Errorf("record %d is %s and has no path", id, rec.Kind())
				}
				text := strings.Join(paths, "\n")
				if !v.GetBool("copy") {
					fmt.Println(text)
					return nil
				}
				if err := c.Copy(ctx, &rpc.CopyRequest{Text: text}); err != nil {
					return fmt.Errorf("copy: %w", err)
				}
				return nil
			})
		})
}

func newHistoryOpenCmd() *cobra.Command {
	return clientCmd("open <id>", "Open an image or file record with the default application", cobra.ExactArgs(1), nil,
		func(v *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				if err := c.OpenRecord(ctx, id); err != nil {
					return fmt.Errorf("open: %w", err)
				}
				return nil
			})
		})
}

func newHistoryDeleteCmd() *cobra.Command {
	cmd := clientCmd("delete <id>", "Delete a record", cobra.ExactArgs(1), nil,
		func(v *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				ok, err := c.DeleteRecord(ctx, id)
				if err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				if !ok {
					return fmt.Errorf("record %d not found", id)
				}
				return nil
			})
		})
	cmd.Aliases = []string{"rm"}
	return cmd
}

func newHistoryFavCmd() *cobra.Command {
	return clientCmd("fav <id>", "Toggle or set a record's favorite flag", cobra.ExactArgs(1),
		func(f *pflag.FlagSet) {
			f.Bool("on", false, "mark as favorite instead of toggling")
			f.Bool("off", false, "clear the favorite flag instead of toggling")
		},
		func(v *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			on, off := v.GetBool("on"), v.GetBool("off")
			if on && off {
				return fmt.Errorf("--on and --off are mutually exclusive")
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				var rec *model.Record
				switch {
				case on || off:
					rec, err = c.SetFavorite(ctx, id, on)
				default:
					rec, err = c.ToggleFavorite(ctx, id)
				}
				if err != nil {
					return fmt.Errorf("favorite: %w", err)
				}
				fmt.Printf("record %d favorite=%v\n", rec.ID, rec.Favorite)
				return nil
			})
		})
}

func newHistoryClearCmd() *cobra.Command {
	return clientCmd("clear", "Delete every record and its cached images", cobra.NoArgs,
		func(f *pflag.FlagSet) {
			f.BoolP("yes", "y", false, "confirm deleting the whole history")
		},
		func(v *viper.Viper, _ []string) error {
			if !v.GetBool("yes") {
				return fmt.Errorf("refusing to clear history without --yes")
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				res, err := c.ClearHistory(ctx)
				if err != nil {
					return fmt.Errorf("clear: %w", err)
				}
				fmt.Printf("%d records deleted\n", res.Deleted)
				for _, p := range res.Problems {
					fmt.Fprintf(os.Stderr, "warning: %s %s: %s\n", p.Stage, p.Path, p.Err)
				}
				return nil
			})
		})
}
