package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "text", Output: &buf})

	log.Debug("dbg", String("k", "v"))
	log.Info("info", Int("n", 42))
	log.Warn("warn", Bool("ok", true))
	log.Error("err", Error(nil))

	out := buf.String()
	for _, s := range []string{"[DEBUG] dbg k=v", "[INFO] info n=42", "[WARN] warn ok=true", "[ERROR] err error=nil"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected output to contain %q, got: %s", s, out)
		}
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn leaked: %s", out)
	}
	if !strings.Contains(out, "[WARN] shown") {
		t.Errorf("warn missing: %s", out)
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	comp := New(Config{Level: "info", Output: &buf}).WithComponent("decoder")
	comp.Info("started")

	out := buf.String()
	if !strings.Contains(out, "[decoder]") || !strings.Contains(out, "[INFO] started") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf}).WithComponent("source")
	log.Warn("bad sample", Int64("line", 12), Error(errors.New("parse failed")))

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "WARN" || entry["msg"] != "bad sample" || entry["component"] != "source" {
		t.Errorf("entry = %v", entry)
	}
	if entry["line"] != float64(12) || entry["error"] != "parse failed" {
		t.Errorf("fields = %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"WARNING": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
