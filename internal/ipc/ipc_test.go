//go:build !windows

package ipc

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

// shortSocket keeps the path under the sun_path limit on macOS.
func shortSocket(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ck")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func TestSocketPathOverride(t *testing.T) {
	t.Setenv("CLIPKEEP_SOCKET", "/tmp/custom.sock")
	if got := SocketPath(); got != "/tmp/custom.sock" {
		t.Errorf("SocketPath = %q", got)
	}
	t.Setenv("CLIPKEEP_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := SocketPath(); got != "/run/user/1000/clipkeep/clipkeep.sock" {
		t.Errorf("SocketPath = %q", got)
	}
}

func TestListenDetectsLiveDaemon(t *testing.T) {
	path := shortSocket(t)
	if IsRunning(path) {
		t.Fatal("IsRunning before Listen")
	}
	l, err := Listen(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if fi, err := os.Stat(path); err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("socket mode = %v, %v", fi.Mode(), err)
	}
	if !IsRunning(path) {
		t.Fatal("IsRunning = false with a live listener")
	}
	if _, err := Listen(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Listen err = %v", err)
	}
}

// A permissive umask must not leave the socket open to others, not even
// between bind and any later chmod.
func TestListenIgnoresUmask(t *testing.T) {
	old := syscall.Umask(0)
	defer syscall.Umask(old)

	path := shortSocket(t)
	l, err := Listen(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if fi, err := os.Stat(path); err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("socket mode = %v, %v", fi.Mode(), err)
	}
}

func TestDefaultSocketDirIsPrivate(t *testing.T) {
	base, err := os.MkdirTemp("", "ck")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(base) })
	t.Setenv("CLIPKEEP_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", base)

	// left behind world-readable by some earlier run
	dir := filepath.Join(base, "clipkeep")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	l, err := Listen(SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	fi, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o700 {
		t.Fatalf("socket dir mode = %v, want 0700", fi.Mode().Perm())
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := shortSocket(t)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	l, err := Listen(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
}

func TestSplitRoutesHTTP(t *testing.T) {
	path := shortSocket(t)
	l, err := Listen(path)
	if err != nil {
		t.Fatal(err)
	}
	m := Split(l)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	})}
	go srv.Serve(m.HTTP)
	done := make(chan error, 1)
	go func() { done <- m.Serve() }()

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) { return Dial(ctx, path) },
	}}
	resp, err := client.Get("http://clipkeep/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	srv.Close()
	l.Close()
	if err := <-done; err != nil {
		t.Errorf("Serve = %v", err)
	}
}
