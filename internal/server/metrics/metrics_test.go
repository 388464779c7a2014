package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilePass(t *testing.T) {
	m := New()
	m.ReconcilePass(2, 1, 3, 1, 0)
	m.ReconcilePass(0, 0, 1, 0, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.designations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.designations.WithLabelValues("remove")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.designations.WithLabelValues("rename")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.skipped))
}

func TestSweptAndReports(t *testing.T) {
	m := New()
	m.Swept(5)
	m.Swept(0)
	m.ReportSent()

	assert.Equal(t, 5.0, testutil.ToFloat64(m.swept))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reports))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ReportSent()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "awaykeeper_reports_sent_total 1")
}
