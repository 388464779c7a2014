// Package metrics exports process counters on a private Prometheus registry
// and serves them next to a liveness endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "awaykeeper"

type Metrics struct {
	registry *prometheus.Registry

	passes       prometheus.Counter
	designations *prometheus.CounterVec
	failures     prometheus.Counter
	skipped      prometheus.Counter
	swept        prometheus.Counter
	reports      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reconcile_passes_total",
			Help: "Reconciliation passes completed.",
		}),
		designations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "designation_changes_total",
			Help: "Successful role and nickname changes by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "platform_failures_total",
			Help: "Failed platform calls during reconciliation.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reconcile_skipped_total",
			Help: "Members or entries skipped during reconciliation.",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "entries_swept_total",
			Help: "Entries deleted by retention.",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reports_sent_total",
			Help: "Daily reports posted.",
		}),
	}

	m.registry.MustRegister(m.passes, m.designations, m.failures, m.skipped, m.swept, m.reports,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) ReconcilePass(added, removed, renamed, failures, skipped int) {
	m.passes.Inc()
	m.designations.WithLabelValues("add").Add(float64(added))
	m.designations.WithLabelValues("remove").Add(float64(removed))
	m.designations.WithLabelValues("rename").Add(float64(renamed))
	m.failures.Add(float64(failures))
	m.skipped.Add(float64(skipped))
}

func (m *Metrics) Swept(n int64) { m.swept.Add(float64(n)) }

func (m *Metrics) ReportSent() { m.reports.Inc() }

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Serve listens on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
