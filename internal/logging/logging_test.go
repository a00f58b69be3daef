package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	w, err := fileSink(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Write([]byte("{\"level\":\"info\"}\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Errorf("log file not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write probe should be removed")
	}
}

func TestFileSink_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fileSink(filepath.Join(file, "logs")); err == nil {
		t.Error("expected error when the log path is under a regular file")
	}
}
