package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderLine(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	log := slog.New(handler).With("component", component)
	LogEvent(ctx, log, level, event, attrs...)
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := renderLine(t, formatKV, ctx, "app", slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("grade", "24"),
	)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	require.GreaterOrEqual(t, len(tokens), len(expected), line)
	for i, prefix := range expected {
		assert.Truef(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Contains(t, line, "user_id=7")
	assert.Contains(t, line, "chat_id=9")
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	line := renderLine(t, formatJSON, ctx, "service.pricing", slog.LevelError, "pricing.fetch",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "PRICE_FETCH"),
	)
	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.pricing"`, `"event":"pricing.fetch"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Greaterf(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	ctx := WithRID(context.Background(), rawRID)

	kv := renderLine(t, formatKV, ctx, "app", slog.LevelInfo, "rid.test", slog.String("status", "ok"))
	assert.Contains(t, kv, "rid="+CompactRID(rawRID))
	assert.NotContains(t, kv, "rid_full=")

	js := renderLine(t, formatJSON, ctx, "app", slog.LevelInfo, "rid.test", slog.String("status", "ok"))
	assert.Contains(t, js, `"rid":"`+CompactRID(rawRID)+`"`)
	assert.Contains(t, js, `"rid_full":"`+rawRID+`"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestStructuredHandlerJobAndDuration(t *testing.T) {
	ctx := WithJob(context.Background(), "broadcast", "broadcast:3")

	line := renderLine(t, formatKV, ctx, "scheduler", slog.LevelInfo, "job.done",
		slog.String("status", "ok"),
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Int("delivered", 2),
	)
	assert.Contains(t, line, "job=broadcast")
	assert.Contains(t, line, "duration_ms=2")
	assert.Contains(t, line, "delivered=2")
	assert.Contains(t, line, "rid=broadcast:3")
}

func TestStructuredHandlerDropsUnknownOutcome(t *testing.T) {
	line := renderLine(t, formatKV, context.Background(), "app", slog.LevelWarn, "x",
		slog.String("outcome", "weird"),
		slog.String("payload", "has space"),
	)
	assert.NotContains(t, line, "outcome=")
	assert.Contains(t, line, `payload="has space"`)
	assert.Contains(t, line, "level=WARN")
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	num, den := parseRatioSpec("10")
	assert.Equal(t, 1, num)
	assert.Equal(t, 10, den)
	num, den = parseRatioSpec("2/5")
	assert.Equal(t, 2, num)
	assert.Equal(t, 5, den)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "ab", Sanitize("a\x00b"))
	assert.Equal(t, "ab", SanitizeLimit("abc", 2))
	}
