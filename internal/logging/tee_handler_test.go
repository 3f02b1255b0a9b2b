package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("expected a single sink to be returned unwrapped")
	}
}

func TestTeeHandlerKeepsDeliveringAfterSinkFailure(t *testing.T) {
	var buf bytes.Buffer
	good := slog.NewJSONHandler(&buf, nil)
	h := newTeeHandler(failingHandler{good}, good)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "job completed", 0)
	err := h.Handle(context.Background(), record)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined sink error, got %v", err)
	}
	if !strings.Contains(buf.String(), "job completed") {
		t.Fatalf("healthy sink missed the record: %q", buf.String())
	}
}

func TestTeeHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	h := newTeeHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("job_id", "j1")}).WithGroup("llm"))
	logger.Info("call", slog.Int("attempt", 2))

	if !strings.Contains(a.String(), `"job_id":"j1"`) || !strings.Contains(a.String(), `"llm":{"attempt":2}`) {
		t.Fatalf("unexpected output %q", a.String())
	}
	if b.Len() != 0 {
		t.Fatalf("warn-level sink received info record: %q", b.String())
	}
}

func TestFormatValueClipsLongText(t *testing.T) {
	long := strings.Repeat("x", maxConsoleValue+10)
	got := formatValue(slog.StringValue(long))
	if !strings.HasSuffix(got, "... (+10 chars)") {
		t.Fatalf("expected clipped value, got %q", got[len(got)-20:])
	}
	if got := formatValue(slog.StringValue("")); got != `""` {
		t.Fatalf("empty string = %s", got)
	}
	if got := formatValue(slog.DurationValue(1234567890 * time.Nanosecond)); got != "1.235s" {
		t.Fatalf("duration = %s", got)
	}
}
