package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/tlsconf"
)

// EventConn is an open /v1/events stream on a daemon's TCP address.
type EventConn struct {
	conn *websocket.Conn
	stop func() bool
}

// DialEvents opens the event stream at addr (host:port). A non-empty token
// is sent as a bearer token over TLS pinned to the key the daemon derives
// from the same token; without a token the stream is plain ws. The stream
// closes when ctx is done.
func DialEvents(ctx context.Context, addr, token string) (*EventConn, error) {
	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/v1/events"}
	header := http.Header{}
	if token != "" {
		cfg, err := tlsconf.ClientConfig(token)
		if err != nil {
			return nil, err
		}
		d.TLSClientConfig = cfg
		u.Scheme = "wss"
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := d.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (HTTP %d)", u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	return &EventConn{conn: conn, stop: stop}, nil
}

// Recv blocks for the next event.
func (c *EventConn) Recv() (*hub.Event, error) {
	ev := new(hub.Event)
	if err := c.conn.ReadJSON(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Close ends the stream.
func (c *EventConn) Close() error {
	c.stop()
	return c.conn.Close()
}
