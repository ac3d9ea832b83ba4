package interceptors

import (
	"github.com/glimte/interim-go/invocation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/glimte/interim-go/interceptors"

// TracingInterceptor wraps each invocation in an OpenTelemetry span. The
// span context is handed down the chain and to the method.
type TracingInterceptor struct {
	tracer trace.Tracer
}

// NewTracingInterceptor creates a new tracing interceptor. A nil tracer
// uses the global tracer provider.
func NewTracingInterceptor(tracer trace.Tracer) *TracingInterceptor {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &TracingInterceptor{tracer: tracer}
}

// Invoke implements invocation.Interception
func (i *TracingInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	parent := ic.Context()
	spanCtx, span := i.tracer.Start(parent, targetName(ic)+"."+ic.Method().Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("invocation.id", ic.ID()),
			attribute.String("invocation.method", ic.Method().Name()),
			attribute.String("invocation.target", targetName(ic)),
			attribute.Int("invocation.params", len(ic.Parameters())),
		),
	)
	defer span.End()

	ic.SetContext(spanCtx)
	defer ic.SetContext(parent)

	result, err := ic.Proceed()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return result, err
}

// Name implements invocation.Named
func (i *TracingInterceptor) Name() string {
	return "TracingInterceptor"
}
