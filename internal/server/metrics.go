package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/factcheck/internal/model"
)

// Metrics holds the Prometheus collectors of the service on a private
// registry. It also observes pipeline stages.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
}

// NewMetrics registers the collectors on a new registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factcheck",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factcheck",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"route"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factcheck",
			Name:      "runs_total",
			Help:      "Fact-check runs by result",
		}, []string{"result"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factcheck",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
		}, []string{"stage"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factcheck",
			Name:      "tool_calls_total",
			Help:      "Research tool calls by question priority",
		}, []string{"priority"}),
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factcheck",
			Name:      "verdicts_total",
			Help:      "Claim verdicts by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveStage records a finished pipeline stage
func (m *Metrics) ObserveStage(s model.StageMetrics) {
	m.stageDuration.WithLabelValues(s.Stage).Observe(float64(s.DurationMs) / 1000)
}

// ObserveRun records a finished run
func (m *Metrics) ObserveRun(r *model.Report, err error) {
	if err != nil {
		m.runs.WithLabelValues("failed").Inc()
		return
	}
	m.runs.WithLabelValues("done").Inc()
	for p, n := range r.Metadata.ToolCallsByPriority {
		m.toolCalls.WithLabelValues(string(p)).Add(float64(n))
	}
	for _, v := range r.Verdicts {
		m.verdicts.WithLabelValues(string(v.Outcome)).Inc()
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// middleware counts requests by matched route
func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
