package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")
	require.NoError(t, Init("jobgate", "0.0.1", fname))

	ctx, span := StartSpan(context.Background(), "job.run")
	span.WithAttributes(map[string]string{"job.id": "job1"})
	span.AddEvent("safepoint")
	_, child := StartSpan(ctx, "job.release")
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, string(data), "job.run")
}

func TestSpan_Nil(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	span.AddEvent("x")
	span.SetStatus(errors.New("x"))
	EndSpan(span, nil)
}
