package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipkeep/internal/httpapi"
	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/rpc"
)

type eventSource interface {
	Recv() (*hub.Event, error)
}

func newWatchCmd() *cobra.Command {
	cmd := clientCmd("watch", "Stream history changes until interrupted", cobra.NoArgs,
		func(f *pflag.FlagSet) {
			f.StringSlice("type", nil, "only these event types, e.g. record.added,history.cleared")
			f.Bool("json", false, "print each event as a JSON line")
			f.String("http-addr", "", "watch a daemon's TCP HTTP API (host:port) instead of the local socket")
			f.String("http-token", "", "token the daemon at --http-addr was started with")
		},
		func(v *viper.Viper, _ []string) error {
			var types []hub.EventType
			for _, t := range v.GetStringSlice("type") {
				types = append(types, hub.EventType(t))
			}

			if addr := v.GetString("http-addr"); addr != "" {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
				defer stop()
				conn, err := httpapi.DialEvents(ctx, addr, v.GetString("http-token"))
				if err != nil {
					return fmt.Errorf("watch: %w", err)
				}
				defer conn.Close()
				return printEvents(ctx, os.Stdout, conn, types, v.GetBool("json"))
			}

			return withStream(v, func(ctx context.Context, c *rpc.Client) error {
				stream, err := c.Watch(ctx, types...)
				if err != nil {
					return fmt.Errorf("watch: %w", err)
				}
				return printEvents(ctx, os.Stdout, stream, nil, v.GetBool("json"))
			})
		})
	cmd.Long = `Prints history events as they happen. By default the events come from the
local daemon over the IPC socket. With --http-addr they are read from the
websocket of a daemon serving --http-addr, over TLS pinned to --http-token
when one is given.`
	return cmd
}

// printEvents writes events from src to w until the stream ends or ctx is
// done. A non-empty types keeps only those events.
func printEvents(ctx context.Context, w io.Writer, src eventSource, types []hub.EventType, asJSON bool) error {
	enc := json.NewEncoder(w)
	for {
		ev, err := src.Recv()
		if err != nil {
			if ctx.Err() != nil || streamEnded(err) {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if len(types) > 0 && !slices.Contains(types, ev.Type) {
			continue
		}
		if asJSON {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		printEvent(w, ev)
	}
}

func streamEnded(err error) bool {
	return errors.Is(err, io.EOF) ||
		status.Code(err) == codes.Canceled ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func printEvent(w io.Writer, ev *hub.Event) {
	switch {
	case ev.Record != nil:
		fmt.Fprintf(w, "%-16s %6d  %-5s %s\n", ev.Type, ev.Record.ID, ev.Record.Kind(), truncate(ev.Record.PreviewText, 60))
	case ev.ID != 0:
		fmt.Fprintf(w, "%-16s %6d\n", ev.Type, ev.ID)
	default:
		fmt.Fprintln(w, ev.Type)
	}
}
