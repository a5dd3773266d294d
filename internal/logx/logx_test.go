package logx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestPrettyZH_InfoAndLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn", "pretty", "zh-CN", "never")
	Infof("should not print")
	Warnf("成员 %s 抓取失败", "#ABC")
	out := buf.String()
	if strings.Contains(out, "should not print") {
		t.Fatalf("info should be filtered when level=warn: %q", out)
	}
	if !strings.Contains(out, "[警告]") || !strings.Contains(out, "#ABC") {
		t.Fatalf("expect zh warn label, got: %q", out)
	}
}

func TestPrettyEnglishLabelsAndColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	InitWriter(&buf, "debug", "pretty", "en", "always")
	Errorf("boom %d", 1)
	out := buf.String()
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expect en label, got: %q", out)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expect ansi color when color=always")
	}
}

func TestPrettyWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, slog.LevelInfo, "en", "never"))
	logger.With("cycle", "c1").WithGroup("war").Info("hello", "attacks", 3)
	s := buf.String()
	if !strings.Contains(s, "cycle=c1") || !strings.Contains(s, "war.attacks=3") {
		t.Fatalf("expect flattened attrs, got: %q", s)
	}
}

func TestJSONFormatUsesZerolog(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "json", "en", "never")
	Logger().Info("cycle done", "hits", 2, "clan", "#2PP")
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode json log %q: %v", buf.String(), err)
	}
	if line["message"] != "cycle done" || line["level"] != "info" || line["clan"] != "#2PP" {
		t.Fatalf("unexpected json log: %v", line)
	}
	if line["hits"].(float64) != 2 {
		t.Fatalf("hits=%v want 2", line["hits"])
	}
}

func TestOffSilencesEverything(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "off", "pretty", "en", "never")
	Errorf("nope")
	if buf.Len() != 0 {
		t.Fatalf("expect no output, got %q", buf.String())
	}
}
