package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/model"
)

func TestCopyRequest(t *testing.T) {
	png := string(pngMagic) + "rest"
	tests := []struct {
		name  string
		args  []string
		stdin string
		text  string
		png   bool
		isNil bool
	}{
		{name: "args", args: []string{"hello", "world"}, text: "hello world"},
		{name: "stdin text", stdin: "line\n", text: "line\n"},
		{name: "stdin png", stdin: png, png: true},
		{name: "empty", isNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := copyRequest(tt.args, strings.NewReader(tt.stdin))
			if err != nil {
				t.Fatal(err)
			}
			if tt.isNil {
				if req != nil {
					t.Fatalf("req = %+v, want nil", req)
				}
				return
			}
			if tt.png {
				if string(req.PNG) != png || req.Text != "" {
					t.Fatalf("req = %+v, want PNG", req)
				}
				return
			}
			if req.Text != tt.text || req.PNG != nil {
				t.Fatalf("req = %+v, want text %q", req, tt.text)
			}
		})
	}
}

func TestParsePatch(t *testing.T) {
	p, err := parsePatch([]string{"history-limit", "20", "auto_paste", "true", "poll_interval", "250ms"})
	if err != nil {
		t.Fatal(err)
	}
	if p.HistoryLimit == nil || *p.HistoryLimit != 20 {
		t.Errorf("history_limit = %v", p.HistoryLimit)
	}
	if p.AutoPaste == nil || !*p.AutoPaste {
		t.Errorf("auto_paste = %v", p.AutoPaste)
	}
	if p.PollInterval == nil || *p.PollInterval != 250*time.Millisecond {
		t.Errorf("poll_interval = %v", p.PollInterval)
	}
	if p.Deduplicate != nil || p.PasteCommand != nil {
		t.Error("unset keys were patched")
	}

	for _, args := range [][]string{
		{"colour", "red"},
		{"history_limit", "lots"},
		{"deduplicate", "maybe"},
	} {
		if _, err := parsePatch(args); err == nil {
			t.Errorf("parsePatch(%q) succeeded", args)
		}
	}
}

func TestTemplatePatchOnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addTemplateFlags(cmd.Flags())
	cmd.Flags().Bool("enabled", true, "")
	if err := cmd.Flags().Parse([]string{"--content", "-", "--enabled=false", "--keywords", ""}); err != nil {
		t.Fatal(err)
	}

	p, err := templatePatch(cmd.Flags(), strings.NewReader("from stdin"))
	if err != nil {
		t.Fatal(err)
	}
	if p.SnippetContent == nil || *p.SnippetContent != "from stdin" {
		t.Errorf("content = %v", p.SnippetContent)
	}
	if p.Enabled == nil || *p.Enabled {
		t.Errorf("enabled = %v", p.Enabled)
	}
	if p.Keywords == nil || len(p.Keywords) != 0 {
		t.Errorf("keywords = %#v, want empty non-nil", p.Keywords)
	}
	if p.Description != nil || p.Shortcut != nil || p.TriggerType != nil {
		t.Errorf("unchanged flags patched: %+v", p)
	}

	tmpl := model.Template{Description: "keep", SnippetContent: "old", Enabled: true, Keywords: []string{"x"}}
	p.Apply(&tmpl)
	if tmpl.Description != "keep" || tmpl.SnippetContent != "from stdin" || tmpl.Enabled {
		t.Errorf("applied = %+v", tmpl)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer line of text", 8, "a longe…"},
		{"two\nlines", 20, "two lines"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, err)
	}
	for _, s := range []string{"", "0", "-3", "abc"} {
		if _, err := parseID(s); err == nil {
			t.Errorf("parseID(%q) succeeded", s)
		}
	}
}

func TestSettingsArgs(t *testing.T) {
	if err := settingsArgs(nil, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := settingsArgs(nil, []string{"a"}); err == nil {
		t.Fatal("odd args accepted")
	}
	if err := settingsArgs(nil, nil); err == nil {
		t.Fatal("no args accepted")
	}
}

func TestRecordPaths(t *testing.T) {
	tests := []struct {
		name string
		rec  *model.Record
		want []string
	}{
		{"image", &model.Record{Content: model.Image{Path: "/cache/1.png"}}, []string{"/cache/1.png"}},
		{"files", &model.Record{Content: model.Files{Paths: []string{"/a", "/b"}}}, []string{"/a", "/b"}},
		{"text", &model.Record{Content: model.Text{Text: "/not/a/path"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordPaths(tt.rec); !slices.Equal(got, tt.want) {
				t.Fatalf("recordPaths = %q, want %q", got, tt.want)
			}
		})
	}
}

type scriptedEvents struct {
	events []*hub.Event
	end    error
}

func (s *scriptedEvents) Recv() (*hub.Event, error) {
	if len(s.events) == 0 {
		return nil, s.end
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func TestPrintEvents(t *testing.T) {
	events := func() []*hub.Event {
		return []*hub.Event{
			{Type: hub.RecordAdded, Record: &model.Record{ID: 7, Content: model.Text{Text: "x"}, PreviewText: "x"}},
			{Type: hub.RecordDeleted, ID: 7},
			{Type: hub.HistoryCleared},
		}
	}

	var out bytes.Buffer
	err := printEvents(context.Background(), &out, &scriptedEvents{events: events(), end: io.EOF},
		[]hub.EventType{hub.RecordDeleted, hub.HistoryCleared}, false)
	if err != nil {
		t.Fatalf("end of stream reported as %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "record.deleted") || lines[1] != "history.cleared" {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	if err := printEvents(context.Background(), &out, &scriptedEvents{events: events(), end: io.EOF}, nil, true); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out.String(), "\n"); n != 3 {
		t.Errorf("json lines = %d, want 3", n)
	}

	boom := errors.New("connection reset")
	if err := printEvents(context.Background(), io.Discard, &scriptedEvents{end: boom}, nil, false); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
