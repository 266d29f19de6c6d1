package clip

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseURIList(t *testing.T) {
	in := "# copied by nautilus\r\nfile:///home/me/a%20b.txt\r\n\r\nhttps://example.com/x\nfile:///tmp/dir\n"
	got := parseURIList(in)
	want := []string{"/home/me/a b.txt", "/tmp/dir"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseURIList = %q, want %q", got, want)
	}
	if got := parseURIList(""); got != nil {
		t.Fatalf("empty list = %q, want nil", got)
	}
}

func TestURIListRoundTrip(t *testing.T) {
	paths := []string{"/home/me/a b.txt", "/tmp/100%/x#1", "/srv/ünï"}
	got := parseURIList(formatURIList(paths))
	if !reflect.DeepEqual(got, paths) {
		t.Fatalf("round trip = %q, want %q", got, paths)
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("C:\\a.txt\r\n\r\nC:\\b\n")
	want := []string{`C:\a.txt`, `C:\b`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitLines = %q, want %q", got, want)
	}
}

func TestHeadless(t *testing.T) {
	b := Headless()
	if _, err := b.Files(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Files err = %v, want ErrUnsupported", err)
	}
	if txt, err := b.Text(); txt != nil || err != nil {
		t.Fatalf("Text = %q, %v", txt, err)
	}
	if err := b.WriteFiles([]string{"/tmp/a"}); err != nil {
		t.Fatalf("WriteFiles = %v", err)
	}
}
