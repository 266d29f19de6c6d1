//go:build !windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
)

func socketPath() string {
	return filepath.Join(runtimeDir(), "clipkeep.sock")
}

// runtimeDir is the per-user directory that holds the default socket.
func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipkeep")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("clipkeep-%d", os.Getuid()))
}

// listenIPC creates the socket owner-only from the start: the umask covers
// the bind itself and the default directory admits nobody else.
func listenIPC(path string) (net.Listener, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if dir == runtimeDir() {
		if err := claimDir(dir); err != nil {
			return nil, err
		}
	}
	_ = os.Remove(path)

	old := syscall.Umask(0o177)
	l, err := net.Listen("unix", path)
	syscall.Umask(old)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// claimDir makes sure dir belongs to this user and is 0700. In a shared
// temp dir another user could have created it first.
func claimDir(dir string) error {
	fi, err := os.Lstat(dir)
	if err != nil {
		return err
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok && int(st.Uid) != os.Getuid() {
		return fmt.Errorf("socket directory %s is owned by uid %d", dir, st.Uid)
	}
	if !fi.IsDir() {
		return fmt.Errorf("socket directory %s is not a directory", dir)
	}
	if fi.Mode().Perm() != 0o700 {
		return os.Chmod(dir, 0o700)
	}
	return nil
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
