package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollector_ObserveStage(t *testing.T) {
	c := NewCollector("variation")
	c.ObserveStage("fetch", 3, 1, 0, 2*time.Second)
	c.ObserveStage("fetch", 1, 0, 0, time.Second)

	body := scrape(t, c)
	assert.Contains(t, body, `variation_items_total{outcome="succeeded",stage="fetch"} 4`)
	assert.Contains(t, body, `variation_items_total{outcome="failed",stage="fetch"} 1`)
	assert.Contains(t, body, `variation_stage_duration_seconds_count{stage="fetch"} 2`)
}

func TestCollector_FetchRunsAndRequests(t *testing.T) {
	c := NewCollector("variation")
	c.ObserveFetch(200)
	c.ObserveFetch(404)
	c.ObserveFetch(404)
	c.ObserveRun("completed")
	c.ObserveRequest(http.MethodGet, 200)

	body := scrape(t, c)
	assert.Contains(t, body, `variation_fetch_responses_total{code="200"} 1`)
	assert.Contains(t, body, `variation_fetch_responses_total{code="404"} 2`)
	assert.Contains(t, body, `variation_runs_total{status="completed"} 1`)
	assert.Contains(t, body, `variation_http_requests_total{method="GET",status="200"} 1`)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveStage("fetch", 1, 1, 1, time.Second)
		c.ObserveFetch(500)
		c.ObserveRun("failed")
		c.ObserveRequest(http.MethodPost, 202)
	})
}

func TestCollectors_AreIndependent(t *testing.T) {
	a := NewCollector("variation")
	b := NewCollector("variation")
	a.ObserveRun("failed")

	assert.Contains(t, scrape(t, a), `variation_runs_total{status="failed"} 1`)
	assert.NotContains(t, scrape(t, b), `variation_runs_total{status="failed"}`)
}
