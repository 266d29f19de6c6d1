package janitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type paths []string

func (p paths) ImagePaths(context.Context) ([]string, error) { return p, nil }

type failing struct{}

func (failing) ImagePaths(context.Context) ([]string, error) { return nil, errors.New("db gone") }

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	mt := time.Now().Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.png")
	orphan := filepath.Join(dir, "orphan.png")
	fresh := filepath.Join(dir, "fresh.png")
	other := filepath.Join(dir, "notes.txt")
	touch(t, kept, time.Hour)
	touch(t, orphan, time.Hour)
	touch(t, fresh, time.Second)
	touch(t, other, time.Hour)

	n, err := Sweep(context.Background(), paths{kept}, dir, time.Minute, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	for path, want := range map[string]bool{kept: true, orphan: false, fresh: true, other: true} {
		if exists(path) != want {
			t.Errorf("%s exists = %v, want %v", filepath.Base(path), !want, want)
		}
	}
}

func TestSweepMissingDir(t *testing.T) {
	n, err := Sweep(context.Background(), paths{}, filepath.Join(t.TempDir(), "nope"), time.Minute, time.Now())
	if err != nil || n != 0 {
		t.Fatalf("Sweep = %d, %v", n, err)
	}
}

func TestSweepStoreError(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "a.png")
	touch(t, orphan, time.Hour)
	if _, err := Sweep(context.Background(), failing{}, dir, time.Minute, time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if !exists(orphan) {
		t.Error("file removed although references were unknown")
	}
}

func TestJanitorRunsImmediately(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "a.png")
	touch(t, orphan, time.Hour)

	j, err := New(paths{}, Options{Dir: dir, Interval: time.Hour, Grace: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer j.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for exists(orphan) {
		if time.Now().After(deadline) {
			t.Fatal("orphan not swept")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
