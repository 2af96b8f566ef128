package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) Logger {
	h := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return New(slog.New(h))
}

func TestLoggerWritesLevelsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).With("subsystem", "cpg")
	ctx := context.Background()

	l.Debug(ctx, "dropped", "kind", "deliver")
	l.Warn(ctx, "careful")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "subsystem=cpg")
	assert.Contains(t, out, "kind=deliver")
}

func TestRedacted(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).Info(context.Background(), "delivered", Redacted("payload"))
	assert.Contains(t, buf.String(), `payload=`+Placeholder())
	assert.NotContains(t, buf.String(), "secret")
}

func TestSetDefault(t *testing.T) {
	t.Cleanup(func() { SetDefault(nil) })

	var buf bytes.Buffer
	SetDefault(newBufferLogger(&buf))
	Default().Error(context.Background(), "boom")
	require.Contains(t, buf.String(), "msg=boom")

	SetDefault(nil)
	_, ok := Default().(*slogLogger)
	assert.True(t, ok)
}
