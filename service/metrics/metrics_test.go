package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreExported(t *testing.T) {
	before := testutil.ToFloat64(FramesSampledTotal)
	FramesSampledTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FramesSampledTotal))

	RunsTotal.WithLabelValues("exhausted").Inc()

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "vs_frames_sampled_total")
	assert.Contains(t, body, `vs_runs_total{reason="exhausted"}`)
}
