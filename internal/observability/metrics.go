package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

const namespace = "ab"

// Metrics owns a private registry. Every method is safe on a nil receiver so
// callers never need to check whether metrics are enabled.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	queueDepth  *prometheus.GaugeVec

	extractions        *prometheus.CounterVec
	textExtraction     *prometheus.CounterVec
	textExtractionTime *prometheus.HistogramVec
	llmRequests        *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init builds the process-wide Metrics once. When disabled it returns nil.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

func Current() *Metrics {
	return instance
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds by method/route/status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Finished job runs by job type and status.",
		}, []string{"job_type", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job run duration in seconds by job type and status.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"job_type", "status"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_queue_depth",
			Help:      "Job runs by status.",
		}, []string{"status"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_extractions_total",
			Help:      "Evidence extraction attempts by outcome.",
		}, []string{"outcome"}),
		textExtraction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "text_extractions_total",
			Help:      "Text extraction runs by file category and status.",
		}, []string{"category", "status"}),
		textExtractionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "text_extraction_duration_seconds",
			Help:      "Text extraction duration by file category.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		}, []string{"category"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Language model calls by operation and status.",
		}, []string{"operation", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Language model call latency by operation.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.jobRuns, m.jobDuration, m.queueDepth,
		m.extractions, m.textExtraction, m.textExtractionTime,
		m.llmRequests, m.llmLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on a dedicated listener until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orUnknown(method)
	route = orUnknown(route)
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	jobType = orUnknown(jobType)
	status = orUnknown(status)
	m.jobRuns.WithLabelValues(jobType, status).Inc()
	m.jobDuration.WithLabelValues(jobType, status).Observe(dur.Seconds())
}

// IncExtraction counts one evidence extraction attempt for a (file, criterion)
// pair. Backend errors are counted here even though they do not fail the job.
func (m *Metrics) IncExtraction(outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(orUnknown(outcome)).Inc()
}

func (m *Metrics) ObserveTextExtraction(category, status string, dur time.Duration) {
	if m == nil {
		return
	}
	category = orUnknown(category)
	m.textExtraction.WithLabelValues(category, orUnknown(status)).Inc()
	m.textExtractionTime.WithLabelValues(category).Observe(dur.Seconds())
}

func (m *Metrics) ObserveLLM(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	operation = orUnknown(operation)
	m.llmRequests.WithLabelValues(operation, orUnknown(status)).Inc()
	m.llmLatency.WithLabelValues(operation).Observe(dur.Seconds())
}

// StartJobQueueCollector polls count by status on every tick and publishes it
// as job_queue_depth.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, interval time.Duration, count func(context.Context) (map[string]int64, error)) {
	if m == nil || count == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectQueueDepth(ctx, log, count)
			}
		}
	}()
}

func (m *Metrics) collectQueueDepth(ctx context.Context, log *logger.Logger, count func(context.Context) (map[string]int64, error)) {
	rows, err := count(ctx)
	if err != nil {
		if log != nil {
			log.Warn("metrics: job queue depth query failed", "error", err)
		}
		return
	}
	m.queueDepth.Reset()
	for status, n := range rows {
		m.queueDepth.WithLabelValues(orUnknown(strings.TrimSpace(status))).Set(float64(n))
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
