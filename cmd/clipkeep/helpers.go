package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"go.klb.dev/clipkeep/internal/ipc"
	"go.klb.dev/clipkeep/internal/rpc"
)

const callTimeout = 10 * time.Second

// withClient connects to the daemon socket and runs fn with a bounded
// context.
func withClient(v *viper.Viper, fn func(ctx context.Context, c *rpc.Client) error) error {
	path := v.GetString("socket")
	if !ipc.IsRunning(path) {
		return fmt.Errorf("clipkeep daemon is not running (socket %s)", path)
	}
	c, err := rpc.Dial(path)
	if err != nil {
		return fmt.Errorf("dial daemon: %w", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return fn(ctx, c)
}

// withStream is withClient without the deadline, stopped by Ctrl-C.
func withStream(v *viper.Viper, fn func(ctx context.Context, c *rpc.Client) error) error {
	path := v.GetString("socket")
	if !ipc.IsRunning(path) {
		return fmt.Errorf("clipkeep daemon is not running (socket %s)", path)
	}
	c, err := rpc.Dial(path)
	if err != nil {
		return fmt.Errorf("dial daemon: %w", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return fn(ctx, c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return id, nil
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04")
}

func fmtMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return fmtAge(time.UnixMilli(ms))
}

// truncate shortens s to n runes for table output, flattening newlines.
func truncate(s string, n int) string {
	out := make([]rune, 0, n)
	for _, r := range s {
		if len(out) == n {
			out[n-1] = '…'
			break
		}
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
