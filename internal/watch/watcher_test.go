package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcher_TriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(file, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 4)
	w := New("test", []string{file, ""}, 20*time.Millisecond, func() { changed <- struct{}{} }, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = w.Stop() }()

	if !w.IsRunning() {
		t.Fatal("watcher should be running")
	}
	if err := w.Start(); err == nil {
		t.Error("second Start() should fail")
	}

	// make sure the mtime moves even on coarse filesystems
	later := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(file, []byte("a: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(file, later, later); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("change callback was not called")
	}
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cert.pem")
	w := New("test", []string{file}, 0, func() {}, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("watcher should be stopped")
	}
}

func TestFileWatcher_NoFiles(t *testing.T) {
	w := New("empty", nil, 0, func() {}, nil)
	if err := w.Start(); err == nil {
		t.Error("expected error without files")
	}
	if got := w.Files(); len(got) != 0 {
		t.Errorf("Files() = %v", got)
	}
}
