package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("hello", "model", "toy")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"model":"toy"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestJSONLoggerHonorsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record leaked through warn level: %s", buf.String())
	}
	log.Error("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("error record missing: %s", buf.String())
	}
}

func TestWithAddsAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).With("request_id", "abc")
	log.Info("step")
	if !strings.Contains(buf.String(), `"request_id":"abc"`) {
		t.Fatalf("attr missing: %s", buf.String())
	}
}

func TestPrettyHandlerOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug)
	log.Warn("watch out", "tokens", 5)

	out := buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "watch out") || !strings.Contains(out, "tokens=5") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	ctx := WithContext(context.Background(), log)
	if FromContext(ctx) != log {
		t.Fatalf("context did not return the stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Fatalf("missing fallback logger")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	if ParseLevel("debug") != slog.LevelDebug {
		t.Fatalf("debug")
	}
	if ParseLevel("warning") != slog.LevelWarn {
		t.Fatalf("warning")
	}
	if ParseLevel("nonsense") != slog.LevelInfo {
		t.Fatalf("fallback")
	}
}
