package logsink

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendCreatesAndGrowsFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Append("564dabcd1234567890abcdef01234567", []byte("hello\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("564dabcd1234567890abcdef01234567", []byte("world\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "564dabcd1234567890abcdef01234567"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "hello\nworld\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestAppendEmptyVMIDFails(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Append("", []byte("x")); err == nil {
		t.Fatal("expected error for empty vm id")
	}
}

func TestEnsureDirCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to exist: err=%v", err)
	}
}

func TestEnsureDirEmptyPathFails(t *testing.T) {
	if err := EnsureDir(""); err == nil {
		t.Fatal("expected error for empty serial_log_dir")
	}
}

func TestPath(t *testing.T) {
	s := New("/var/log/vspc")
	got := s.Path("abc123")
	want := filepath.Join("/var/log/vspc", "abc123")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
