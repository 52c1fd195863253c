package transport

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/crosswire-ai/mcp-go/pkg/observability"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

// ObservabilityMiddleware records wire-level metrics for every payload
// and wraps each send in a span. Method names are sniffed from the
// payload; responses carry an empty method label.
type ObservabilityMiddleware struct {
	metrics observability.MetricsProvider
	tracer  trace.Tracer
}

// NewObservabilityMiddleware creates a middleware that records metrics
// and traces on the given providers. Either provider may be nil.
func NewObservabilityMiddleware(metrics observability.MetricsProvider, tracing *observability.TracingProvider) Middleware {
	om := &ObservabilityMiddleware{metrics: metrics}
	if om.metrics == nil {
		om.metrics = observability.NewNoopMetricsProvider()
	}
	if tracing != nil {
		om.tracer = tracing.Tracer()
	} else {
		om.tracer = noop.NewTracerProvider().Tracer("mcp-go")
	}
	return om
}

// Wrap implements the Middleware interface
func (om *ObservabilityMiddleware) Wrap(transport Transport) Transport {
	return &observabilityTransport{
		middlewareTransport: middlewareTransport{next: transport},
		middleware:          om,
	}
}

type observabilityTransport struct {
	middlewareTransport
	middleware *ObservabilityMiddleware
}

func (ot *observabilityTransport) Send(ctx context.Context, data []byte) error {
	method := protocol.SniffMethod(data)
	msgType := protocol.Classify(data).String()

	ctx, span := ot.middleware.tracer.Start(ctx, "mcp.transport.send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("mcp.method", method),
			attribute.String("mcp.message_type", msgType),
			attribute.Int("mcp.payload_bytes", len(data)),
		),
	)
	defer span.End()

	err := ot.middlewareTransport.Send(ctx, data)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	ot.middleware.metrics.RecordMessageSent(ctx, method, msgType, status, len(data))

	return err
}

func (ot *observabilityTransport) SetMessageHandler(handler MessageHandler) {
	ot.middlewareTransport.SetMessageHandler(func(data []byte) {
		ot.middleware.metrics.RecordMessageReceived(context.Background(),
			protocol.SniffMethod(data), protocol.Classify(data).String(), len(data))
		handler(data)
	})
}

func (ot *observabilityTransport) SetErrorHandler(handler ErrorHandler) {
	ot.middlewareTransport.SetErrorHandler(func(err error) {
		ot.middleware.metrics.RecordError(context.Background(), "transport", "")
		if handler != nil {
			handler(err)
		}
	})
}
