package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"go.klb.dev/clipkeep/internal/fingerprint"
	"go.klb.dev/clipkeep/internal/history"
	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/store"
	"go.klb.dev/clipkeep/internal/tlsconf"
)

type staticSettings struct{}

func (staticSettings) HistoryLimit() int        { return 100 }
func (staticSettings) DeduplicateEnabled() bool { return true }

type noTemplates struct{}

func (noTemplates) List(context.Context) ([]*model.Template, error) { return nil, nil }

type fixture struct {
	srv     *httptest.Server
	manager *history.Manager
	hub     *hub.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "http.db"), staticSettings{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	h := hub.New()
	m := history.New(st, h)
	srv := httptest.NewServer(New(st, m, noTemplates{}, h).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, manager: m, hub: h}
}

func (f *fixture) add(t *testing.T, text string) *model.Record {
	t.Helper()
	rec := &model.Record{Content: model.Text{Text: text}, Hash: fingerprint.String(text), Timestamp: time.Now().UnixMilli()}
	rec.Derive()
	out, err := f.manager.Add(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRoutes(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, "alpha")
	f.add(t, "beta")
	id := strconv.FormatInt(a.ID, 10)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"health", "GET", "/healthz", "", 200},
		{"metrics", "GET", "/metrics", "", 200},
		{"list", "GET", "/v1/history?limit=10", "", 200},
		{"bad kind", "GET", "/v1/history?kind=video", "", 400},
		{"bad limit", "GET", "/v1/history?limit=-1", "", 400},
		{"get", "GET", "/v1/history/" + id, "", 200},
		{"get missing", "GET", "/v1/history/9999", "", 404},
		{"get bad id", "GET", "/v1/history/abc", "", 400},
		{"favorite", "POST", "/v1/history/" + id + "/favorite", `{"favorite":true}`, 200},
		{"toggle", "POST", "/v1/history/" + id + "/favorite", "", 200},
		{"favorite missing", "POST", "/v1/history/9999/favorite", "", 404},
		{"templates", "GET", "/v1/templates", "", 200},
		{"delete", "DELETE", "/v1/history/" + id, "", 204},
		{"delete again", "DELETE", "/v1/history/" + id, "", 404},
		{"clear", "DELETE", "/v1/history", "", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.code {
				t.Fatalf("%s %s = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.code)
			}
		})
	}
}

func TestImageRoute(t *testing.T) {
	f := newFixture(t)
	png := []byte("\x89PNG\r\n\x1a\nfake")
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(path, png, 0o600); err != nil {
		t.Fatal(err)
	}
	rec := &model.Record{Content: model.Image{Path: path}, Hash: fingerprint.Bytes(png), Timestamp: time.Now().UnixMilli()}
	rec.Derive()
	img, err := f.manager.Add(context.Background(), rec)
	if err != nil || img == nil {
		t.Fatalf("add image: %v, %v", img, err)
	}
	txt := f.add(t, "not a picture")

	resp := f.do(t, "GET", "/v1/history/"+strconv.FormatInt(img.ID, 10)+"/image", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, png) {
		t.Errorf("body = %q", body)
	}

	for _, path := range []string{
		"/v1/history/" + strconv.FormatInt(txt.ID, 10) + "/image",
		"/v1/history/9999/image",
	} {
		if resp := f.do(t, "GET", path, ""); resp.StatusCode != 404 {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Hello world")
	f.add(t, "goodbye")

	resp := f.do(t, "GET", "/v1/history?search=hello", "")
	var body struct {
		Records []*model.Record `json:"records"`
		Total   int             `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Records) != 1 || body.Total != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Records[0].PreviewText != "Hello world" {
		t.Errorf("preview = %q", body.Records[0].PreviewText)
	}
}

func TestEventsWebsocket(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for f.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := f.add(t, "pushed")
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev hub.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != hub.RecordAdded || ev.Record == nil || ev.Record.ID != rec.ID {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDialEventsOverTLS(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "tls.db"), staticSettings{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	h := hub.New()
	m := history.New(st, h)

	cfg, err := tlsconf.ServerConfig("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewUnstartedServer(RequireToken("s3cret")(New(st, m, noTemplates{}, h).Handler()))
	srv.TLS = cfg
	srv.StartTLS()
	t.Cleanup(srv.Close)
	addr := srv.Listener.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c, err := DialEvents(ctx, addr, "wrong"); err == nil {
		c.Close()
		t.Fatal("dial with the wrong token succeeded")
	}

	c, err := DialEvents(ctx, addr, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	deadline := time.Now().Add(5 * time.Second)
	for h.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec := &model.Record{Content: model.Text{Text: "remote"}, Hash: fingerprint.String("remote"), Timestamp: time.Now().UnixMilli()}
	rec.Derive()
	added, err := m.Add(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	ev, err := c.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != hub.RecordAdded || ev.Record == nil || ev.Record.ID != added.ID {
		t.Fatalf("event = %+v", ev)
	}
}

func TestRequireToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireToken("s3cret")(ok)

	tests := []struct {
		name   string
		path   string
		header string
		code   int
	}{
		{"health is open", "/healthz", "", 200},
		{"missing", "/v1/history", "", 401},
		{"wrong", "/v1/history", "Bearer nope", 401},
		{"header", "/v1/history", "Bearer s3cret", 200},
		{"query", "/v1/events?token=s3cret", "", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}
