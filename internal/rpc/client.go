package rpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/ipc"
	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/settings"
	"go.klb.dev/clipkeep/internal/store"
)

// Client talks to a running daemon.
type Client struct {
	conn *grpc.ClientConn
}

// Dial returns a Client for the daemon on the IPC socket at path. The
// connection is lazy; the first call fails if no daemon is listening.
func Dial(path string) (*Client, error) {
	conn, err := grpc.NewClient("passthrough:///clipkeep",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return ipc.Dial(ctx, path)
		}),
	)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) call(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

func (c *Client) ListHistory(ctx context.Context, q store.Query) (*ListHistoryResponse, error) {
	out := new(ListHistoryResponse)
	return out, c.call(ctx, "ListHistory", &ListHistoryRequest{Query: q}, out)
}

func (c *Client) GetRecord(ctx context.Context, id int64) (*model.Record, error) {
	out := new(RecordResponse)
	if err := c.call(ctx, "GetRecord", &RecordRequest{ID: id}, out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

func (c *Client) GetImage(ctx context.Context, id int64) ([]byte, error) {
	out := new(ImageResponse)
	err := c.call(ctx, "GetImage", &RecordRequest{ID: id}, out)
	return out.PNG, err
}

func (c *Client) OpenRecord(ctx context.Context, id int64) error {
	return c.call(ctx, "OpenRecord", &RecordRequest{ID: id}, &Empty{})
}

func (c *Client) DeleteRecord(ctx context.Context, id int64) (bool, error) {
	out := new(DeleteResponse)
	err := c.call(ctx, "DeleteRecord", &RecordRequest{ID: id}, out)
	return out.Deleted, err
}

func (c *Client) SetFavorite(ctx context.Context, id int64, fav bool) (*model.Record, error) {
	out := new(RecordResponse)
	if err := c.call(ctx, "SetFavorite", &SetFavoriteRequest{ID: id, Favorite: fav}, out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

func (c *Client) ToggleFavorite(ctx context.Context, id int64) (*model.Record, error) {
	out := new(RecordResponse)
	if err := c.call(ctx, "ToggleFavorite", &RecordRequest{ID: id}, out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

func (c *Client) ClearHistory(ctx context.Context) (store.ClearResult, error) {
	out := new(ClearResponse)
	err := c.call(ctx, "ClearHistory", &Empty{}, out)
	return out.ClearResult, err
}

func (c *Client) PasteRecord(ctx context.Context, id int64, copyOnly bool) error {
	return c.call(ctx, "PasteRecord", &PasteRequest{ID: id, CopyOnly: copyOnly}, &Empty{})
}

func (c *Client) Copy(ctx context.Context, req *CopyRequest) error {
	return c.call(ctx, "Copy", req, &Empty{})
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	out := new(StatusResponse)
	return out, c.call(ctx, "Status", &Empty{}, out)
}

func (c *Client) GetSettings(ctx context.Context) (settings.Values, error) {
	out := new(SettingsResponse)
	err := c.call(ctx, "GetSettings", &Empty{}, out)
	return out.Values, err
}

func (c *Client) UpdateSettings(ctx context.Context, p settings.Patch) (settings.Values, error) {
	out := new(SettingsResponse)
	err := c.call(ctx, "UpdateSettings", &UpdateSettingsRequest{Patch: p}, out)
	return out.Values, err
}

func (c *Client) ListTemplates(ctx context.Context) ([]*model.Template, error) {
	out := new(ListTemplatesResponse)
	err := c.call(ctx, "ListTemplates", &Empty{}, out)
	return out.Templates, err
}

func (c *Client) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	out := new(TemplateResponse)
	err := c.call(ctx, "GetTemplate", &TemplateRequest{ID: id}, out)
	return out.Template, err
}

func (c *Client) CreateTemplate(ctx context.Context, t model.Template) (*model.Template, error) {
	out := new(TemplateResponse)
	err := c.call(ctx, "CreateTemplate", &CreateTemplateRequest{Template: t}, out)
	return out.Template, err
}

func (c *Client) UpdateTemplate(ctx context.Context, id string, p model.TemplatePatch) (*model.Template, error) {
	out := new(TemplateResponse)
	err := c.call(ctx, "UpdateTemplate", &UpdateTemplateRequest{ID: id, Patch: p}, out)
	return out.Template, err
}

func (c *Client) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	out := new(DeleteTemplateResponse)
	err := c.call(ctx, "DeleteTemplate", &TemplateRequest{ID: id}, out)
	return out.Deleted, err
}

func (c *Client) ToggleTemplate(ctx context.Context, id string) (*model.Template, error) {
	out := new(TemplateResponse)
	err := c.call(ctx, "ToggleTemplate", &TemplateRequest{ID: id}, out)
	return out.Template, err
}

func (c *Client) ResolveTemplate(ctx context.Context, id string) (string, error) {
	out := new(ResolveResponse)
	err := c.call(ctx, "ResolveTemplate", &TemplateRequest{ID: id}, out)
	return out.Text, err
}

func (c *Client) SyncShortcuts(ctx context.Context) (*ShortcutsResponse, error) {
	out := new(ShortcutsResponse)
	return out, c.call(ctx, "SyncShortcuts", &Empty{}, out)
}

// EventStream is an open Watch call.
type EventStream struct {
	s grpc.ClientStream
}

// Recv blocks for the next event.
func (e *EventStream) Recv() (*hub.Event, error) {
	ev := new(hub.Event)
	if err := e.s.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Watch opens an event stream. Cancel ctx to end it.
func (c *Client) Watch(ctx context.Context, types ...hub.EventType) (*EventStream, error) {
	s, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], "/"+serviceName+"/Watch",
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	if err := s.SendMsg(&WatchRequest{Types: types}); err != nil {
		return nil, err
	}
	if err := s.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{s: s}, nil
}
