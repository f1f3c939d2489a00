package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := New()

	r.RecordMutation("record")
	r.RecordMutation("record")
	r.RecordReplay()
	r.RecordRejected("record", "invalid_operation")
	r.RecordQuote("ok")
	r.RecordCache("sqlite", true)
	r.RecordCache("sqlite", false)
	r.RecordJob("backup", errors.New("x"))

	assert.Equal(t, 2.0, value(t, r.LedgerMutations.WithLabelValues("record")))
	assert.Equal(t, 1.0, value(t, r.LedgerReplays))
	assert.Equal(t, 1.0, value(t, r.LedgerRejected.WithLabelValues("record", "invalid_operation")))
	assert.Equal(t, 1.0, value(t, r.CacheHits.WithLabelValues("sqlite")))
	assert.Equal(t, 1.0, value(t, r.CacheMisses.WithLabelValues("sqlite")))
	assert.Equal(t, 1.0, value(t, r.JobRuns.WithLabelValues("backup", "error")))
}

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.RecordMutation("record")
		r.RecordReplay()
		r.RecordRejected("a", "b")
		r.ObserveFeed("chart", time.Now(), nil)
		r.RecordQuote("ok")
		r.RecordCache("redis", true)
		r.ObserveHTTP("GET", "/health", 200, time.Millisecond)
		r.RecordJob("x", nil)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.RecordMutation("delete")
	r.ObserveHTTP("GET", "/api/valuation", 503, 10*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `holdfast_ledger_mutations_total{operation="delete"} 1`)
	assert.Contains(t, string(body), `status="5xx"`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(409))
	assert.Equal(t, "5xx", statusClass(500))
}
