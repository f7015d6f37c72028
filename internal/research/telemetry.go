package research

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/factcheck/internal/model"
)

var (
	tracer = otel.Tracer("factcheck.research")
	meter  = otel.Meter("factcheck.research")
)

var (
	toolCalls      metric.Int64Counter
	questionsByEnd metric.Int64Counter
	metricsOnce    sync.Once
	metricsInitErr error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		toolCalls, err = meter.Int64Counter(
			"research_tool_calls_total",
			metric.WithDescription("Tool calls consumed, by tool and question priority"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		questionsByEnd, err = meter.Int64Counter(
			"research_questions_total",
			metric.WithDescription("Research questions by terminal status"),
		)
		if err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func recordToolCall(ctx context.Context, tool string, priority model.Priority, ok bool) {
	if initMetrics() != nil {
		return
	}
	toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("priority", string(priority)),
		attribute.Bool("success", ok),
	))
}

func recordQuestion(ctx context.Context, q model.ResearchQuestion) {
	if initMetrics() != nil {
		return
	}
	questionsByEnd.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(q.Status)),
		attribute.String("priority", string(q.Priority)),
	))
}

func startQuestionSpan(ctx context.Context, q model.ResearchQuestion) (context.Context, trace.Span) {
	return tracer.Start(ctx, "research.question",
		trace.WithAttributes(
			attribute.String("question.id", q.ID),
			attribute.String("question.claim_id", q.ClaimID),
			attribute.String("question.priority", string(q.Priority)),
		),
	)
}
