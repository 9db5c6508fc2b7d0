package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileWriter_Config(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	lj := NewFileWriter(FileConfig{Path: path, MaxSizeMB: 10, MaxFiles: 3})

	if lj.Filename != path || lj.MaxSize != 10 || lj.MaxBackups != 3 || !lj.Compress {
		t.Errorf("unexpected lumberjack config: %+v", lj)
	}
}

func TestNewFileWriter_Defaults(t *testing.T) {
	lj := NewFileWriter(FileConfig{})

	if lj.Filename != defaultFilePath {
		t.Errorf("Filename = %q, want %q", lj.Filename, defaultFilePath)
	}
	if lj.MaxSize != defaultMaxSizeMB || lj.MaxBackups != defaultMaxFiles {
		t.Errorf("MaxSize=%d MaxBackups=%d", lj.MaxSize, lj.MaxBackups)
	}
}

func TestNewFileWriter_CreatesNestedPath(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subdir", "app.log")
	w := NewFileWriter(FileConfig{Path: logPath, MaxSizeMB: 10, MaxFiles: 3})
	t.Cleanup(func() { _ = w.Close() })

	msg := []byte(`{"level":"info","message":"hello"}` + "\n")
	n, err := w.Write(msg)
	if err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if n != len(msg) {
		t.Errorf("expected %d bytes written, got %d", len(msg), n)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if string(data) != string(msg) {
		t.Errorf("expected file content %q, got %q", msg, data)
	}
}
