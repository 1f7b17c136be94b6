package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("rendering", 150*time.Millisecond)
	pr.ObserveBuildDuration("incremental", 500*time.Millisecond)
	pr.IncStageResult("rendering", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.AddArtifacts("rendered", 3)
	pr.AddArtifacts("skipped", 0)
	pr.IncFullRebuild("configuration changed")
	pr.SetReloadClients(2)

	assert.InDelta(t, 3, testutil.ToFloat64(pr.artifacts.WithLabelValues("rendered")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.buildOutcome.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.reloadClients), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncBuildOutcome(BuildOutcomeFailed)
		pr.AddArtifacts("failed", 1)
	})
}

func TestHTTPHandler_ServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncFullRebuild("no prior build state")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sitebuilder_full_rebuilds_total")
}
