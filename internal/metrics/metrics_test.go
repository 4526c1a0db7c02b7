package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New()

	m.CashAppended("membership sale", 50000)
	m.CashAppended("membership sale", 50000)
	m.CashAppended("single entry", 8000)
	m.EntryRecorded("paid")
	m.SetLiveClients(3)
	m.Operation("register_client", "ok")
	m.JobRun("nightly", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cashRecords.WithLabelValues("membership sale")))
	assert.Equal(t, 100000.0, testutil.ToFloat64(m.cashAmount.WithLabelValues("membership sale")))
	assert.Equal(t, 8000.0, testutil.ToFloat64(m.cashAmount.WithLabelValues("single entry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("paid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.liveClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("register_client", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("nightly", "false")))
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2", "3"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clients/"+id, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/clients/{id}", "404")))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), "gym_http_requests_total")
}
