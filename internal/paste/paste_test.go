package paste

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"go.klb.dev/clipkeep/internal/model"
)

type fakeClip struct {
	text, image []byte
	files       []string
	err         error
}

func (f *fakeClip) WriteText(b []byte) error    { f.text = b; return f.err }
func (f *fakeClip) WriteImage(b []byte) error   { f.image = b; return f.err }
func (f *fakeClip) WriteFiles(p []string) error { f.files = p; return f.err }

type fakeSettings struct {
	auto    bool
	command string
}

func (f fakeSettings) AutoPaste() bool      { return f.auto }
func (f fakeSettings) PasteCommand() string { return f.command }

func newSink(clip *fakeClip, set fakeSettings) (*Sink, *[]string) {
	var ran []string
	s := New(clip, set)
	s.run = func(_ context.Context, command string) error {
		ran = append(ran, command)
		return nil
	}
	return s, &ran
}

func TestPasteTextSendsKeystroke(t *testing.T) {
	clip := &fakeClip{}
	s, ran := newSink(clip, fakeSettings{auto: true, command: "press ctrl+v"})
	if err := s.PasteText(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if string(clip.text) != "hi" {
		t.Errorf("clipboard = %q", clip.text)
	}
	if len(*ran) != 1 || (*ran)[0] != "press ctrl+v" {
		t.Errorf("ran = %v", *ran)
	}
}

func TestAutoPasteOff(t *testing.T) {
	s, ran := newSink(&fakeClip{}, fakeSettings{auto: false, command: "x"})
	if err := s.PasteText(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if len(*ran) != 0 {
		t.Errorf("keystroke sent with auto-paste off: %v", *ran)
	}
}

func TestCopyRecord(t *testing.T) {
	img := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(img, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		content   model.Content
		wantText  string
		wantImage string
		wantFiles []string
	}{
		{"text", model.Text{Text: "hello"}, "hello", "", nil},
		{"image", model.Image{Path: img}, "", "png", nil},
		// as a file list, so the monitor sees the same paths and hash again
		{"files", model.Files{Paths: []string{"/a", "/b c"}}, "", "", []string{"/a", "/b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &fakeClip{}
			s, _ := newSink(clip, fakeSettings{})
			if err := s.CopyRecord(&model.Record{Content: tt.content}); err != nil {
				t.Fatal(err)
			}
			if string(clip.text) != tt.wantText || string(clip.image) != tt.wantImage {
				t.Errorf("clipboard text=%q image=%q", clip.text, clip.image)
			}
			if !slices.Equal(clip.files, tt.wantFiles) {
				t.Errorf("clipboard files=%q, want %q", clip.files, tt.wantFiles)
			}
		})
	}
}

func TestCopyRecordErrors(t *testing.T) {
	s, _ := newSink(&fakeClip{}, fakeSettings{})
	if err := s.CopyRecord(&model.Record{}); err == nil {
		t.Error("empty record accepted")
	}
	if err := s.CopyRecord(&model.Record{Content: model.Image{Path: filepath.Join(t.TempDir(), "gone.png")}}); err == nil {
		t.Error("missing image accepted")
	}

	boom := errors.New("boom")
	s, ran := newSink(&fakeClip{err: boom}, fakeSettings{auto: true, command: "x"})
	if err := s.PasteText(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if len(*ran) != 0 {
		t.Error("keystroke sent after failed write")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	doc := filepath.Join(dir, "b.txt")
	for _, p := range []string{img, doc} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		content model.Content
		want    []string
		wantErr error
	}{
		{"image", model.Image{Path: img}, []string{img}, nil},
		{"files", model.Files{Paths: []string{doc, dir}}, []string{doc, dir}, nil},
		{"text", model.Text{Text: "hi"}, nil, ErrNothingToOpen},
		{"missing", model.Files{Paths: []string{doc, filepath.Join(dir, "gone")}}, nil, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSink(&fakeClip{}, fakeSettings{})
			var opened []string
			s.open = func(_ context.Context, p string) error {
				opened = append(opened, p)
				return nil
			}
			err := s.Open(context.Background(), &model.Record{Content: tt.content})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if len(opened) != 0 {
					t.Fatalf("opened %q despite error", opened)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(opened, tt.want) {
				t.Errorf("opened = %q, want %q", opened, tt.want)
			}
		})
	}
}
