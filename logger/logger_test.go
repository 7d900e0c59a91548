package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level LogLevel) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(&Config{
		Level:   level,
		Format:  JSONFormat,
		Outputs: []io.Writer{&buf},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		"info":    InfoLevel,
		"warning": WarnLevel,
		"err":     ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	if ParseOutputFormat("JSON") != JSONFormat {
		t.Error("expected JSON format")
	}
	if ParseOutputFormat("anything") != DefaultFormat {
		t.Error("expected default format")
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, WarnLevel)

	l.Info("dropped")
	l.Warn("kept")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["message"] != "kept" {
		t.Errorf("unexpected message: %v", lines[0]["message"])
	}
	if l.IsLevelEnabled(InfoLevel) {
		t.Error("info should not be enabled at warn level")
	}
	if !l.IsLevelEnabled(ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestTypedFields(t *testing.T) {
	l, buf := newBufferLogger(t, DebugLevel)

	l.Info("rotated",
		String("path", "/var/log/app.log"),
		Int("generation", 2),
		Uint64("bytes", 42),
		Bool("compressed", true),
		Err(errors.New("boom")),
	)

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line["path"] != "/var/log/app.log" {
		t.Errorf("path = %v", line["path"])
	}
	if line["generation"] != float64(2) {
		t.Errorf("generation = %v", line["generation"])
	}
	if line["bytes"] != float64(42) {
		t.Errorf("bytes = %v", line["bytes"])
	}
	if line["compressed"] != true {
		t.Errorf("compressed = %v", line["compressed"])
	}
	if line["error"] != "boom" {
		t.Errorf("error = %v", line["error"])
	}
}

func TestWithSubsystemNesting(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	l.WithSubsystem("redirect").WithSubsystem("stdout").Info("hello")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["module"] != "redirect.stdout" {
		t.Errorf("module = %v, want redirect.stdout", lines[0]["module"])
	}
}

func TestWithFieldsSticky(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	child := l.WithFields(String("run_id", "01ABC"))
	child.Info("one")
	child.Info("two")
	l.Info("three")

	lines := decodeLines(t, buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, line := range lines[:2] {
		if line["run_id"] != "01ABC" {
			t.Errorf("expected run_id on child line, got %v", line)
		}
	}
	if _, ok := lines[2]["run_id"]; ok {
		t.Error("parent logger must not inherit child fields")
	}
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "outrotate.log")

	l, err := New(&Config{
		Level:      InfoLevel,
		Format:     JSONFormat,
		FileConfig: DefaultFileConfig(path),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.WithSubsystem("cmd").Info("written to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error("nothing happens")
	if err := l.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
