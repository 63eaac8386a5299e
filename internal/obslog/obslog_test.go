package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v want %v", in, got, want)
		}
	}
}

func TestBuildJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Build(Options{Level: zapcore.InfoLevel, Format: "json", Console: true, ConsoleWriter: &buf})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("match_start", zap.String("white", "alice"))
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "match_start" || entry["white"] != "alice" || entry["level"] != "info" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestBuildWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "arena.log")
	logger, err := Build(Options{Level: zapcore.InfoLevel, Format: "legacy", ToFile: true, FilePath: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Info("match_finish")
	_ = logger.Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "match_finish") || !strings.Contains(string(raw), " | INFO | ") {
		t.Fatalf("log file = %q", raw)
	}
}

func TestBuildWithoutSinksIsNop(t *testing.T) {
	logger, err := Build(Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected nop logger")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "yaml")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "/tmp/x.log")
	o := OptionsFromEnv()
	if o.Level != zapcore.DebugLevel || o.Format != "legacy" || !o.ToFile || o.FilePath != "/tmp/x.log" {
		t.Fatalf("options = %+v", o)
	}
}
