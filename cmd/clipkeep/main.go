// clipkeep: clipboard history with snippet templates and global hotkeys.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/clipkeep/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	runMain(func() { os.Exit(execute()) })
}

func execute() int {
	root := &cobra.Command{
		Use:   "clipkeep",
		Short: "Clipboard history manager",
		Long: `clipkeep records everything copied to the system clipboard (text, images
and file lists) into a local SQLite history, and pastes snippet templates
bound to global keyboard shortcuts.

Run "clipkeep daemon" once per desktop session. The other commands talk to
the running daemon over a local socket.

Config file search order (first found wins):
  /etc/clipkeep/clipkeep.toml
  $HOME/.config/clipkeep/clipkeep.toml
  path supplied via --config

All flags can be set via CLIPKEEP_<FLAG> env vars or config-file keys.
Runtime preferences (history limit, dedup, auto-paste) live in the daemon's
settings file; see "clipkeep settings --help".`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newHistoryCmd(),
		newPasteCmd(),
		newCopyCmd(),
		newTemplateCmd(),
		newSettingsCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipkeep %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string, file logging.FileOptions) io.Closer {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	return logging.Setup(format, level, file)
}
