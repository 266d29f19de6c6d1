package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/rpc"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"tpl"},
		Short:   "Manage snippet templates",
		Long: `Templates are text snippets pasted by a global keyboard shortcut. The
snippet may contain placeholders resolved at paste time:

  {now}                 date and time (yyyy-MM-dd HH:mm:ss)
  {isodate} {isotime}   date (yyyy-MM-dd) and time (HH:mm:ss)
  {now:dd/MM/yyyy}      any of the three with a custom date pattern
  {timestamp}           Unix milliseconds
  {clipboard}           current clipboard text

Shortcuts use accelerator syntax, e.g. CommandOrControl+Shift+1.`,
	}
	cmd.AddCommand(
		newTemplateListCmd(),
		newTemplateAddCmd(),
		newTemplateEditCmd(),
		newTemplateRemoveCmd(),
		newTemplateToggleCmd(),
		newTemplateResolveCmd(),
		newTemplateSyncCmd(),
	)
	return cmd
}

func newTemplateListCmd() *cobra.Command {
	return clientCmd("list", "List templates", cobra.NoArgs,
		func(f *pflag.FlagSet) {
			f.Bool("json", false, "output raw JSON")
		},
		func(v *viper.Viper, _ []string) error {
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				list, err := c.ListTemplates(ctx)
				if err != nil {
					return fmt.Errorf("list templates: %w", err)
				}
				if v.GetBool("json") {
					return printJSON(list)
				}
				printTemplates(list)
				return nil
			})
		})
}

func printTemplates(list []*model.Template) {
	if len(list) == 0 {
		fmt.Println("No templates.")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tON\tTRIGGER\tSHORTCUT\tDESCRIPTION\tSNIPPET\n")
	_, _ = fmt.Fprintf(tw, "--\t--\t-------\t--------\t-----------\t-------\n")
	for _, t := range list {
		on := "no"
		if t.Enabled {
			on = "yes"
		}
		sc := t.Shortcut
		if sc == "" {
			sc = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, on, t.TriggerType, sc, truncate(t.Description, 30), truncate(t.SnippetContent, 40))
	}
	_ = tw.Flush()
}

func addTemplateFlags(f *pflag.FlagSet) {
	f.StringP("description", "d", "", "short description")
	f.StringP("content", "c", "", `snippet text; "-" reads stdin`)
	f.String("shortcut", "", "global shortcut, e.g. CommandOrControl+Shift+1")
	f.String("trigger", string(model.TriggerShortcut), "trigger type: shortcut|keyword")
	f.StringSlice("keywords", nil, "comma separated keywords")
}

func snippetContent(s string, stdin io.Reader) (string, error) {
	if s != "-" {
		return s, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func newTemplateAddCmd() *cobra.Command {
	return clientCmd("add", "Create a template", cobra.NoArgs,
		func(f *pflag.FlagSet) {
			addTemplateFlags(f)
			f.Bool("disabled", false, "create the template disabled")
		},
		func(v *viper.Viper, _ []string) error {
			content, err := snippetContent(v.GetString("content"), os.Stdin)
			if err != nil {
				return err
			}
			t := model.Template{
				Description:    v.GetString("description"),
				Enabled:        !v.GetBool("disabled"),
				Keywords:       v.GetStringSlice("keywords"),
				SnippetContent: content,
				TriggerType:    model.TriggerType(v.GetString("trigger")),
				Shortcut:       v.GetString("shortcut"),
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				created, err := c.CreateTemplate(ctx, t)
				if err != nil {
					return fmt.Errorf("create template: %w", err)
				}
				fmt.Println(created.ID)
				return nil
			})
		})
}

// newTemplateEditCmd is built by hand: only flags given on the command line
// become part of the patch.
func newTemplateEditCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Change fields of a template",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := templatePatch(cmd.Flags(), os.Stdin)
			if err != nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				t, err := c.UpdateTemplate(ctx, args[0], p)
				if err != nil {
					return fmt.Errorf("update template: %w", err)
				}
				fmt.Printf("template %s updated\n", t.ID)
				return nil
			})
		},
	}
	addTemplateFlags(cmd.Flags())
	cmd.Flags().Bool("enabled", true, "enable or disable (--enabled=false)")
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func templatePatch(f *pflag.FlagSet, stdin io.Reader) (model.TemplatePatch, error) {
	var p model.TemplatePatch
	if f.Changed("description") {
		s, _ := f.GetString("description")
		p.Description = &s
	}
	if f.Changed("content") {
		raw, _ := f.GetString("content")
		s, err := snippetContent(raw, stdin)
		if err != nil {
			return p, err
		}
		p.SnippetContent = &s
	}
	if f.Changed("shortcut") {
		s, _ := f.GetString("shortcut")
		p.Shortcut = &s
	}
	if f.Changed("trigger") {
		s, _ := f.GetString("trigger")
		tt := model.TriggerType(s)
		p.TriggerType = &tt
	}
	if f.Changed("keywords") {
		kw, _ := f.GetStringSlice("keywords")
		if kw == nil {
			kw = []string{}
		}
		p.Keywords = kw
	}
	if f.Changed("enabled") {
		on, _ := f.GetBool("enabled")
		p.Enabled = &on
	}
	return p, nil
}

func newTemplateRemoveCmd() *cobra.Command {
	cmd := clientCmd("rm <id>", "Delete a template", cobra.ExactArgs(1), nil,
		func(v *viper.Viper, args []string) error {
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				ok, err := c.DeleteTemplate(ctx, args[0])
				if err != nil {
					return fmt.Errorf("delete template: %w", err)
				}
				if !ok {
					return fmt.Errorf("template %s not found", args[0])
				}
				return nil
			})
		})
	cmd.Aliases = []string{"delete"}
	return cmd
}

func newTemplateToggleCmd() *cobra.Command {
	return clientCmd("toggle <id>", "Enable or disable a template", cobra.ExactArgs(1), nil,
		func(v *viper.Viper, args []string) error {
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				t, err := c.ToggleTemplate(ctx, args[0])
				if err != nil {
					return fmt.Errorf("toggle template: %w", err)
				}
				fmt.Printf("template %s enabled=%v\n", t.ID, t.Enabled)
				return nil
			})
		})
}

func newTemplateResolveCmd() *cobra.Command {
	return clientCmd("resolve <id>", "Print a template with its placeholders filled in", cobra.ExactArgs(1), nil,
		func(v *viper.Viper, args []string) error {
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				text, err := c.ResolveTemplate(ctx, args[0])
				if err != nil {
					return fmt.Errorf("resolve template: %w", err)
				}
				fmt.Print(text)
				if !strings.HasSuffix(text, "\n") {
					fmt.Println()
				}
				return nil
			})
		})
}

func newTemplateSyncCmd() *cobra.Command {
	return clientCmd("sync", "Re-register every template shortcut", cobra.NoArgs, nil,
		func(v *viper.Viper, _ []string) error {
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				sum, err := c.SyncShortcuts(ctx)
				if err != nil {
					return fmt.Errorf("sync shortcuts: %w", err)
				}
				fmt.Printf("registered %d, failed %d, skipped %d\n", sum.Registered, sum.Failed, sum.Skipped)
				return nil
			})
		})
}
