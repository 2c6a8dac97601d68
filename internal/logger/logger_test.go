package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestHandlerFormat verifies the line layout and attribute rendering.
func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil))

	log.Info("reached consensus", "true", 3, "false", 0)

	line := buf.String()
	if !strings.Contains(line, "[INF] reached consensus true=3 false=0") {
		t.Errorf("unexpected line: %q", line)
	}

	if !strings.HasSuffix(line, "\n") {
		t.Error("line not newline-terminated")
	}
}

// TestHandlerLevel verifies records below the minimum level are dropped.
func TestHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)
	log := slog.New(NewHandler(&buf, lv))

	log.Debug("round detail")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}

	lv.Set(slog.LevelDebug)
	log.Debug("round detail")

	if !strings.Contains(buf.String(), "[DBG] round detail") {
		t.Errorf("debug not written at debug level: %q", buf.String())
	}
}

// TestHandlerWithAttrs verifies derived loggers carry their attributes.
func TestHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil)).With("node", 4).WithGroup("phase").With("index", 1)

	log.Info("king")

	if !strings.Contains(buf.String(), "[INF] king node=4 phase.index=1") {
		t.Errorf("unexpected line: %q", buf.String())
	}
}
