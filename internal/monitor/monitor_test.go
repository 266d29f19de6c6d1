package monitor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.klb.dev/clipkeep/internal/clip"
	"go.klb.dev/clipkeep/internal/model"
)

type fakeBackend struct {
	mu       sync.Mutex
	text     []byte
	img      []byte
	files    []string
	filesErr error
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Text() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, nil
}

func (b *fakeBackend) Image() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img, nil
}

func (b *fakeBackend) Files() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files, b.filesErr
}

func (b *fakeBackend) WriteText(t []byte) error    { b.set(t, nil, nil); return nil }
func (b *fakeBackend) WriteImage(p []byte) error   { b.set(nil, p, nil); return nil }
func (b *fakeBackend) WriteFiles(p []string) error { b.set(nil, nil, p); return nil }
func (b *fakeBackend) Close()                      {}

func (b *fakeBackend) set(text, img []byte, files []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text, b.img, b.files = text, img, files
}

func testPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestMonitor(t *testing.T, b clip.Backend) *Monitor {
	t.Helper()
	m, err := New(b, Options{CacheDir: filepath.Join(t.TempDir(), "image_cache"), Buffer: 64})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// drain returns every record emitted so far.
func drain(m *Monitor) []model.Record {
	var out []model.Record
	for {
		select {
		case r := <-m.out:
			out = append(out, r)
		default:
			return out
		}
	}
}

func TestIdenticalStateEmitsOnce(t *testing.T) {
	b := &fakeBackend{text: []byte("hello")}
	m := newTestMonitor(t, b)
	for range 5 {
		m.tick(context.Background())
	}
	got := drain(m)
	if len(got) != 1 {
		t.Fatalf("emitted %d records, want 1", len(got))
	}
	if got[0].Kind() != model.KindText || got[0].PreviewText != "hello" || got[0].Hash == "" {
		t.Fatalf("record = %+v", got[0])
	}
}

func TestKindSwitchRearms(t *testing.T) {
	b := &fakeBackend{}
	m := newTestMonitor(t, b)
	ctx := context.Background()

	b.set([]byte("T"), nil, nil)
	m.tick(ctx)
	b.set(nil, testPNG(t, color.White), nil)
	m.tick(ctx)
	b.set([]byte("T"), nil, nil)
	m.tick(ctx)

	got := drain(m)
	if len(got) != 3 {
		t.Fatalf("emitted %d records, want 3", len(got))
	}
	want := []model.Kind{model.KindText, model.KindImage, model.KindText}
	for i, k := range want {
		if got[i].Kind() != k {
			t.Errorf("record %d kind = %s, want %s", i, got[i].Kind(), k)
		}
	}
}

func TestPriorityFilesOverImageOverText(t *testing.T) {
	b := &fakeBackend{}
	m := newTestMonitor(t, b)
	ctx := context.Background()

	b.set([]byte("/a/b.txt"), testPNG(t, color.Black), []string{"/a/b.txt"})
	m.tick(ctx)
	b.set([]byte("caption"), testPNG(t, color.Black), nil)
	m.tick(ctx)

	got := drain(m)
	if len(got) != 2 || got[0].Kind() != model.KindFile || got[1].Kind() != model.KindImage {
		t.Fatalf("got %+v", got)
	}
	if got[0].PreviewText != "b.txt" {
		t.Errorf("file preview = %q", got[0].PreviewText)
	}
}

func TestNothingResetsState(t *testing.T) {
	b := &fakeBackend{text: []byte("again")}
	m := newTestMonitor(t, b)
	ctx := context.Background()

	m.tick(ctx)
	b.set(nil, nil, nil)
	m.tick(ctx)
	b.set([]byte("again"), nil, nil)
	m.tick(ctx)

	if got := drain(m); len(got) != 2 {
		t.Fatalf("emitted %d records, want 2", len(got))
	}
}

func TestWhitespaceTextIgnored(t *testing.T) {
	b := &fakeBackend{text: []byte("x")}
	m := newTestMonitor(t, b)
	ctx := context.Background()

	m.tick(ctx)
	b.set([]byte(" \n\t"), nil, nil)
	m.tick(ctx)
	b.set([]byte("x"), nil, nil)
	m.tick(ctx)

	got := drain(m)
	if len(got) != 2 {
		t.Fatalf("emitted %d records, want 2", len(got))
	}
	for _, r := range got {
		if r.Content.(model.Text).Text != "x" {
			t.Fatalf("whitespace captured: %+v", r)
		}
	}
}

func TestImageWrittenBeforeEmit(t *testing.T) {
	b := &fakeBackend{img: testPNG(t, color.White)}
	m := newTestMonitor(t, b)
	m.tick(context.Background())

	got := drain(m)
	if len(got) != 1 {
		t.Fatalf("emitted %d records, want 1", len(got))
	}
	path := got[0].ImagePath()
	if filepath.Dir(path) != m.cacheDir || filepath.Ext(path) != ".png" {
		t.Fatalf("image path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cached image missing: %v", err)
	}
	if got[0].PreviewText != filepath.Base(path) {
		t.Errorf("preview = %q", got[0].PreviewText)
	}
}

func TestImageWriteFailureRetries(t *testing.T) {
	b := &fakeBackend{img: testPNG(t, color.White)}
	m := newTestMonitor(t, b)
	ctx := context.Background()

	// replace the cache dir with a plain file so writes fail
	if err := os.RemoveAll(m.cacheDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.cacheDir, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	m.tick(ctx)
	if got := drain(m); len(got) != 0 {
		t.Fatalf("emitted %d records despite write failure", len(got))
	}

	if err := os.Remove(m.cacheDir); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(m.cacheDir, 0o700); err != nil {
		t.Fatal(err)
	}
	m.tick(ctx)
	if got := drain(m); len(got) != 1 {
		t.Fatalf("emitted %d records after recovery, want 1", len(got))
	}
}

func TestUnsupportedFilesDegrades(t *testing.T) {
	b := &fakeBackend{filesErr: clip.ErrUnsupported}
	m := newTestMonitor(t, b)
	m.tick(context.Background())
	if got := drain(m); len(got) != 0 {
		t.Fatalf("emitted %+v", got)
	}

	b.set([]byte("text still works"), nil, nil)
	m.tick(context.Background())
	if got := drain(m); len(got) != 1 || got[0].Kind() != model.KindText {
		t.Fatalf("got %+v", got)
	}
}

func TestBackendErrorKeepsState(t *testing.T) {
	b := &fakeBackend{text: []byte("x")}
	m := newTestMonitor(t, b)
	ctx := context.Background()
	m.tick(ctx)
	drain(m)

	b.mu.Lock()
	b.filesErr = errors.New("helper crashed")
	b.mu.Unlock()
	m.tick(ctx)

	b.mu.Lock()
	b.filesErr = nil
	b.mu.Unlock()
	m.tick(ctx)

	if got := drain(m); len(got) != 0 {
		t.Fatalf("failed tick changed state: %+v", got)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	b := &fakeBackend{text: []byte("polled")}
	m, err := New(b, Options{CacheDir: t.TempDir(), Interval: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Start(ctx)
	if !m.Running() {
		t.Fatal("not running after Start")
	}

	select {
	case r := <-m.Items():
		if r.Content.(model.Text).Text != "polled" {
			t.Fatalf("record = %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no record from running monitor")
	}

	m.Stop()
	m.Stop()
	if m.Running() {
		t.Fatal("running after Stop")
	}
	m.Wait()
}
