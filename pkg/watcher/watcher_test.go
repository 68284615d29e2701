package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string, opts ...Option) *Watcher {
	t.Helper()

	w, err := New(dir, opts...)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { w.Stop() })

	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return w
}

func waitForEvent(t *testing.T, w *Watcher, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case path := <-w.Events():
		return path, true
	case <-time.After(timeout):
		return "", false
	}
}

func TestWatcherAnnouncesNewFile(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, WithDebounce(50*time.Millisecond))

	path := filepath.Join(dir, "dropped.txt")
	if err := os.WriteFile(path, []byte("fresh content"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := waitForEvent(t, w, 3*time.Second)
	if !ok {
		t.Fatal("no event for a newly created file")
	}
	if got != path {
		t.Fatalf("event path = %q, want %q", got, path)
	}
}

func TestWatcherIgnoresTransientFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, WithDebounce(30*time.Millisecond))

	for _, name := range []string{".hidden", "draft.tmp", "~lock"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if path, ok := waitForEvent(t, w, 400*time.Millisecond); ok {
		t.Fatalf("transient file %q should not be announced", path)
	}
}

func TestWatcherExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, WithDebounce(30*time.Millisecond), WithExtensions([]string{"txt", ".md"}))

	if err := os.WriteFile(filepath.Join(dir, "skip.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := waitForEvent(t, w, 3*time.Second)
	if !ok {
		t.Fatal("expected an event for keep.txt")
	}
	if filepath.Base(got) != "keep.txt" {
		t.Fatalf("event for %q, want keep.txt", got)
	}

	if path, ok := waitForEvent(t, w, 300*time.Millisecond); ok {
		t.Fatalf("unexpected second event for %q", path)
	}
}

func TestWatcherDebounceCollapsesWrites(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, WithDebounce(200*time.Millisecond))

	path := filepath.Join(dir, "growing.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.WriteString("more data\n"); err != nil {
			t.Fatal(err)
		}
		f.Sync()
		time.Sleep(50 * time.Millisecond)
	}
	f.Close()

	if _, ok := waitForEvent(t, w, 3*time.Second); !ok {
		t.Fatal("expected one event after writes settle")
	}
	if path, ok := waitForEvent(t, w, 400*time.Millisecond); ok {
		t.Fatalf("writes within the settle window should collapse, got extra event %q", path)
	}
}

func TestListExisting(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"b.txt", "a.md", ".hidden", "notes.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New(dir, WithExtensions([]string{".txt", ".md"}))
	if err != nil {
		t.Fatal(err)
	}

	files, err := w.ListExisting()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want a.md and b.txt", files)
	}
	if filepath.Base(files[0]) != "a.md" || filepath.Base(files[1]) != "b.txt" {
		t.Fatalf("unexpected order or content: %v", files)
	}
}
