package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsIdempotent(t *testing.T) {
	InitMetrics()
	InitMetrics()

	before := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	CacheLookups.WithLabelValues("hit").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
}

func TestInitTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer(&buf, "test")
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "correlate")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "correlate"`)
}
