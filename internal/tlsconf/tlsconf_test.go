package tlsconf

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"testing"
)

func serve(t *testing.T, passphrase string) string {
	t.Helper()
	cfg, err := ServerConfig(passphrase)
	if err != nil {
		t.Fatal(err)
	}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_, _ = c.Write([]byte("ok"))
			}(c)
		}
	}()
	return ln.Addr().String()
}

func TestHandshake(t *testing.T) {
	addr := serve(t, "correct horse")

	tests := []struct {
		name       string
		passphrase string
		wantErr    bool
	}{
		{"same passphrase", "correct horse", false},
		{"other passphrase", "battery staple", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ClientConfig(tt.passphrase)
			if err != nil {
				t.Fatal(err)
			}
			conn, err := tls.Dial("tcp", addr, cfg)
			if tt.wantErr {
				if err == nil {
					conn.Close()
					t.Fatal("handshake succeeded with wrong passphrase")
				}
				if !errors.Is(err, ErrKeyMismatch) {
					t.Logf("handshake error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()
			b, err := io.ReadAll(conn)
			if err != nil || string(b) != "ok" {
				t.Fatalf("read = %q, %v", b, err)
			}
		})
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	a, err := deriveKey("pw")
	if err != nil {
		t.Fatal(err)
	}
	b, err := deriveKey("pw")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatal("same passphrase produced different keys")
	}
	c, _ := deriveKey("other")
	if a.Equal(c) {
		t.Fatal("different passphrases produced the same key")
	}
	if _, err := deriveKey(""); err == nil {
		t.Fatal("empty passphrase accepted")
	}
}
