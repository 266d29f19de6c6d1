// Package ipc is the local control channel between the clipkeep daemon and
// CLI invocations: a Unix domain socket, or a named pipe on Windows.
//
// The daemon serves both gRPC and plain HTTP on the one listener; see
// Split.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// ErrAlreadyRunning is returned by Listen when another daemon answers on the
// socket.
var ErrAlreadyRunning = errors.New("ipc: clipkeep daemon already running")

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux: $XDG_RUNTIME_DIR/clipkeep/clipkeep.sock
//   - macOS / fallback: $TMPDIR/clipkeep-<uid>/clipkeep.sock
//   - Windows: \\.\pipe\clipkeep
//
// $CLIPKEEP_SOCKET overrides all of them.
func SocketPath() string {
	if s := os.Getenv("CLIPKEEP_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := dialIPC(ctx, path)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path. A stale socket left by a crashed run
// is removed; a live one yields ErrAlreadyRunning.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, ErrAlreadyRunning
	}
	l, err := listenIPC(path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return l, nil
}

// Dial connects to the daemon on path.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	return dialIPC(ctx, path)
}
