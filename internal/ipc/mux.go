package ipc

import (
	"errors"
	"net"

	"github.com/soheilhy/cmux"
)

// Mux splits one listener into a gRPC side and an HTTP/1 side.
type Mux struct {
	m    cmux.CMux
	GRPC net.Listener
	HTTP net.Listener
}

// Split routes HTTP/2 connections whose content-type starts with
// application/grpc to GRPC and everything else to HTTP. Matchers must be
// registered before Serve, so Split does it up front.
func Split(l net.Listener) *Mux {
	m := cmux.New(l)
	return &Mux{
		m:    m,
		GRPC: m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc")),
		HTTP: m.Match(cmux.Any()),
	}
}

// Serve blocks until the underlying listener is closed. A closed listener is
// a clean exit.
func (m *Mux) Serve() error {
	err := m.m.Serve()
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, cmux.ErrListenerClosed) {
		return nil
	}
	return err
}

// Close stops accepting connections.
func (m *Mux) Close() { m.m.Close() }
