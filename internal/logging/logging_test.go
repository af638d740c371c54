package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil {
			t.Fatalf("round trip of %v: %v", level, err)
		}
		if parsed != level {
			t.Errorf("expected %v, got %v", level, parsed)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("expected json, got %v %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("expected text default, got %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelWarn {
		t.Errorf("expected default level warn, got %v", cfg.Level)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if cfg.Component != "macstat" {
		t.Errorf("expected component macstat, got %s", cfg.Component)
	}
	if !strings.HasSuffix(cfg.FilePath, filepath.Join("macstat", "macstat.log")) {
		t.Errorf("unexpected log path %s", cfg.FilePath)
	}
	if cfg.MaxSize <= 0 || cfg.MaxAge <= 0 || cfg.MaxBackups <= 0 {
		t.Errorf("expected positive retention settings, got %+v", cfg)
	}
}

func TestLoggerAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = LevelDebug
	cfg.Format = FormatJSON

	logger := NewWithWriter(cfg, &buf).WithComponent("presence").WithSession("abc")
	logger.Info("watcher registered", "class", "audio", "api_key", "hunter2")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if record["msg"] != "watcher registered" {
		t.Errorf("unexpected msg %v", record["msg"])
	}
	if record["session"] != "abc" {
		t.Errorf("expected session attr, got %v", record["session"])
	}
	if record["class"] != "audio" {
		t.Errorf("expected class attr, got %v", record["class"])
	}
	if record["api_key"] != "[REDACTED]" {
		t.Errorf("expected api_key to be redacted, got %v", record["api_key"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(DefaultConfig(), &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record passed a warn logger: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=macstat") {
		t.Errorf("expected warn record with component, got %s", out)
	}
}

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == b {
		t.Error("session ids should differ")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("session id is not a uuid: %v", err)
	}
}

func TestShouldRedact(t *testing.T) {
	for _, key := range []string{"password", "AUTH_TOKEN", "client_secret", "apikey"} {
		if !shouldRedact(key) {
			t.Errorf("expected %s to be redacted", key)
		}
	}
	for _, key := range []string{"class", "name", "slice"} {
		if shouldRedact(key) {
			t.Errorf("did not expect %s to be redacted", key)
		}
	}
}

func TestFileOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = filepath.Join(t.TempDir(), "logs", "macstat.log")

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Error("subscribe failed", "class", "display")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "subscribe failed") {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestFileRotatorRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.FilePath = filepath.Join(dir, "macstat.log")
	cfg.MaxSize = 1
	cfg.MaxBackups = 2
	cfg.Compress = false

	r, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}
	defer r.Close()

	clock := time.Date(2025, 8, 13, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 4; i++ {
		if _, err := r.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	files, err := r.LogFiles()
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected active file plus 2 backups, got %v", files)
	}
	if files[0] != cfg.FilePath {
		t.Errorf("expected active file first, got %s", files[0])
	}
}

func TestFileRotatorCompress(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.FilePath = filepath.Join(dir, "macstat.log")
	cfg.Compress = true

	r, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}
	defer r.Close()

	if _, err := r.Write([]byte("first line\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "macstat-*.log.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("expected one compressed backup, got %v", matches)
	}
}
