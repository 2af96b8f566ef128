package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpanDisabled(t *testing.T) {
	shutdown, err := Setup(false, nil)
	require.NoError(t, err)
	defer shutdown(context.Background())

	ctx := context.Background()
	got, end := StartSpan(ctx, "noop")
	assert.Equal(t, ctx, got)
	end(nil)
}

func TestStartSpanExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(true, &buf)
	require.NoError(t, err)

	_, end := StartSpan(context.Background(), "cpg ping", attribute.String("cpg.group", "ping"))
	end(errors.New("boom"))
	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name": "cpg ping"`)
	assert.Contains(t, out, "cpg.group")
	assert.Contains(t, out, "boom")

	// Shutdown disables span creation again.
	ctx := context.Background()
	got, _ := StartSpan(ctx, "after")
	assert.Equal(t, ctx, got)
}
