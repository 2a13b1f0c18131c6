package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/etnz/fintalk/agent"

// tracer and meter use the global providers, no-op unless the program
// installs real ones.
var (
	tracer = otel.Tracer(instrumentation)
	meter  = otel.Meter(instrumentation)
)

var toolCalls, _ = meter.Int64Counter("fintalk.tool.calls",
	metric.WithDescription("Number of tool calls dispatched, by tool and outcome."))

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err, if any, and ends span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func countToolCall(ctx context.Context, tool, outcome string) {
	if toolCalls == nil {
		return
	}
	toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	))
}
