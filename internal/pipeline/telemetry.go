package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/model"
)

var (
	tracer = otel.Tracer("factcheck.pipeline")
	meter  = otel.Meter("factcheck.pipeline")
)

var (
	runDuration    metric.Float64Histogram
	verdictCounter metric.Int64Counter
	runCounter     metric.Int64Counter
	metricsOnce    sync.Once
	metricsInitErr error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		runDuration, err = meter.Float64Histogram(
			"factcheck_run_duration_seconds",
			metric.WithDescription("Duration of fact-check runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		verdictCounter, err = meter.Int64Counter(
			"factcheck_verdicts_total",
			metric.WithDescription("Verdicts by outcome"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		runCounter, err = meter.Int64Counter(
			"factcheck_runs_total",
			metric.WithDescription("Fact-check runs by final stage"),
		)
		if err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func recordRun(ctx context.Context, state *State, seconds float64) {
	if initMetrics() != nil {
		return
	}
	runCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(state.Stage))))
	runDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", string(state.Stage))))
	for _, v := range state.Verdicts {
		verdictCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(v.Outcome))))
	}
}

func startRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "factcheck.run", trace.WithAttributes(attribute.String("run.id", runID)))
}

func startStageSpan(ctx context.Context, stage Stage) (context.Context, trace.Span) {
	return tracer.Start(ctx, "factcheck."+string(stage), trace.WithAttributes(attribute.String("stage", string(stage))))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// countingCollaborator counts model invocations for stage metrics
type countingCollaborator struct {
	next  llm.Collaborator
	calls atomic.Int64
}

func (c *countingCollaborator) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.calls.Add(1)
	return c.next.Invoke(ctx, req)
}

// StageObserver receives stage metrics as stages complete. The HTTP
// server feeds them to Prometheus.
type StageObserver interface {
	ObserveStage(m model.StageMetrics)
	ObserveRun(report *model.Report, err error)
}
