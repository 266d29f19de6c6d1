package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"go.klb.dev/clipkeep/internal/clip"
	"go.klb.dev/clipkeep/internal/history"
	"go.klb.dev/clipkeep/internal/httpapi"
	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/ipc"
	"go.klb.dev/clipkeep/internal/janitor"
	"go.klb.dev/clipkeep/internal/monitor"
	"go.klb.dev/clipkeep/internal/paste"
	"go.klb.dev/clipkeep/internal/rpc"
	"go.klb.dev/clipkeep/internal/settings"
	"go.klb.dev/clipkeep/internal/shortcut"
	"go.klb.dev/clipkeep/internal/snippet"
	"go.klb.dev/clipkeep/internal/store"
	"go.klb.dev/clipkeep/internal/templates"
	"go.klb.dev/clipkeep/internal/tlsconf"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the clipboard and serve the history",
		Long: `Starts the clipboard monitor, records every new clipboard entry into the
history database, binds template shortcuts as global hotkeys and serves the
local API on the IPC socket (gRPC for the CLI, HTTP + websocket events for
everything else).

Global hotkeys need a binary built with -tags hotkeys (and a display on
Linux); other builds serve everything except shortcut bindings.

Only one daemon may run per socket. Data lives under --data-dir:
  history.db      SQLite history and templates
  settings.toml   runtime settings, reloaded when edited
  images/         captured images as PNG`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runDaemon(v) },
	}

	f := cmd.Flags()
	f.String("data-dir", defaultDataDir(), "directory for the database, settings and image cache")
	f.String("socket", ipc.SocketPath(), "IPC socket path")
	f.String("http-addr", "", "also serve the HTTP API on this TCP address (e.g. 127.0.0.1:8753)")
	f.String("http-token", "", "require this bearer token on --http-addr and serve it over TLS keyed by the token")
	f.Bool("headless", false, "do not touch the system clipboard (API only)")
	f.Bool("no-hotkeys", false, "do not register template shortcuts as global hotkeys")
	f.Duration("janitor-interval", janitor.DefaultInterval, "how often orphaned images are swept")
	f.Duration("janitor-grace", janitor.DefaultGrace, "minimum age of an orphaned image before removal")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(v *viper.Viper) error {
	logCloser := setupLogging(v)
	defer logCloser.Close()

	dataDir := v.GetString("data-dir")
	imageDir := filepath.Join(dataDir, "images")
	if err := os.MkdirAll(imageDir, 0o700); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	set, err := settings.Open(filepath.Join(dataDir, "settings.toml"))
	if err != nil {
		return err
	}
	startInterval := set.PollInterval()
	set.Watch(func(vals settings.Values) {
		if vals.PollInterval != startInterval {
			slog.Warn("poll interval change applies after daemon restart",
				"running", startInterval, "configured", vals.PollInterval)
		}
	})

	st, err := store.Open(filepath.Join(dataDir, "history.db"), set)
	if err != nil {
		return err
	}
	defer st.Close()

	var backend clip.Backend
	if v.GetBool("headless") {
		backend = clip.Headless()
	} else {
		backend = clip.New()
	}
	defer backend.Close()

	slog.Info("clipkeep daemon starting",
		"version", Version,
		"data_dir", dataDir,
		"clipboard", backend.Name(),
		"history_limit", set.HistoryLimit(),
		"deduplicate", set.DeduplicateEnabled(),
	)

	mon, err := monitor.New(backend, monitor.Options{Interval: startInterval, CacheDir: imageDir})
	if err != nil {
		return err
	}

	events := hub.New()
	hist := history.New(st, events)
	resolver := snippet.NewResolver(backend)
	sink := paste.New(backend, set)

	// Nil interfaces, not typed nils, when hotkeys are off.
	var (
		syncer    templates.Syncer
		shortcuts rpc.Shortcuts
		keys      *shortcut.Manager
	)
	switch {
	case v.GetBool("no-hotkeys"):
	case !shortcut.Available:
		slog.Info("global hotkeys not compiled in, rebuild with -tags hotkeys to bind template shortcuts")
	default:
		keys = shortcut.NewManager(shortcut.NewHotkeyRegistrar(), st, resolver, sink)
		syncer, shortcuts = keys, keys
	}
	tmpl := templates.New(st, syncer, resolver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socket := v.GetString("socket")
	ipcLn, err := ipc.Listen(socket)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return fmt.Errorf("another clipkeep daemon owns %s", socket)
		}
		return fmt.Errorf("ipc listen: %w", err)
	}
	slog.Info("IPC socket listening", "path", socket)
	mux := ipc.Split(ipcLn)

	grpcSrv := grpc.NewServer()
	rpc.Register(grpcSrv, rpc.New(rpc.Deps{
		Version:   Version,
		Backend:   backend.Name(),
		Store:     st,
		History:   hist,
		Templates: tmpl,
		Settings:  set,
		Sink:      sink,
		Hub:       events,
		Monitor:   mon,
		Shortcuts: shortcuts,
	}))
	handler := httpapi.New(st, hist, tmpl, events).Handler()

	var (
		tcpLn      net.Listener
		tcpHandler = handler
	)
	if addr := v.GetString("http-addr"); addr != "" {
		tcpLn, tcpHandler, err = listenTCP(addr, v.GetString("http-token"), handler)
		if err != nil {
			mux.Close()
			return err
		}
	}

	if keys != nil {
		sum, err := keys.RegisterTemplateShortcuts(ctx)
		if err != nil {
			slog.Error("template shortcuts not registered", "err", err)
		} else {
			slog.Info("template shortcuts registered",
				"registered", sum.Registered, "failed", sum.Failed, "skipped", sum.Skipped)
		}
		defer keys.Close()
	}

	jan, err := janitor.New(st, janitor.Options{
		Dir:      imageDir,
		Interval: v.GetDuration("janitor-interval"),
		Grace:    v.GetDuration("janitor-grace"),
	})
	if err != nil {
		return err
	}
	if err := jan.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := jan.Stop(); err != nil {
			slog.Warn("janitor shutdown", "err", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	mon.Start(ctx)
	g.Go(func() error {
		hist.Run(ctx, mon.Items())
		return nil
	})
	g.Go(func() error { return grpcSrv.Serve(mux.GRPC) })
	g.Go(func() error { return serveHTTP(ctx, mux.HTTP, handler) })
	g.Go(mux.Serve)

	if tcpLn != nil {
		g.Go(func() error { return serveHTTP(ctx, tcpLn, tcpHandler) })
	}

	g.Go(func() error {
		<-ctx.Done()
		// Stop, not GracefulStop: Watch streams only end with their client.
		grpcSrv.Stop()
		mux.Close()
		return nil
	})

	err = g.Wait()
	mon.Stop()
	mon.Wait()
	slog.Info("clipkeep daemon stopped")
	return err
}

// listenTCP opens the network HTTP listener. With a token it serves TLS
// keyed by the token and requires the token on every request.
func listenTCP(addr, token string, h http.Handler) (net.Listener, http.Handler, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if token == "" {
		if host, _, _ := net.SplitHostPort(addr); !isLoopback(host) {
			slog.Warn("HTTP API exposed without --http-token", "addr", ln.Addr())
		}
		slog.Info("HTTP API listening", "addr", ln.Addr())
		return ln, h, nil
	}
	cfg, err := tlsconf.ServerConfig(token)
	if err != nil {
		ln.Close()
		return nil, nil, err
	}
	slog.Info("HTTPS API listening", "addr", ln.Addr())
	return tls.NewListener(ln, cfg), httpapi.RequireToken(token)(h), nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// serveHTTP runs the HTTP API until ctx is done. Errors caused by the
// listener closing during shutdown are not failures.
func serveHTTP(ctx context.Context, l net.Listener, h http.Handler) error {
	err := httpapi.Serve(ctx, l, h)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
