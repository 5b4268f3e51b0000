package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/developer-mesh/querycache"

// StartSpan starts a new trace span using the global OpenTelemetry tracer
// provider. Callers own provider configuration; with no provider installed
// the returned span is a no-op.
func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	return ctx, &otelSpanWrapper{span: span}
}

// otelSpanWrapper wraps an OpenTelemetry span to implement the Span interface
type otelSpanWrapper struct {
	span trace.Span
}

// End implements Span.End
func (o *otelSpanWrapper) End() {
	o.span.End()
}

// SetAttribute implements Span.SetAttribute
func (o *otelSpanWrapper) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		o.span.SetAttributes(attribute.String(key, v))
	case int:
		o.span.SetAttributes(attribute.Int(key, v))
	case int64:
		o.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		o.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		o.span.SetAttributes(attribute.Bool(key, v))
	default:
		o.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// AddEvent implements Span.AddEvent
func (o *otelSpanWrapper) AddEvent(name string, attributes map[string]interface{}) {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	o.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError implements Span.RecordError
func (o *otelSpanWrapper) RecordError(err error) {
	o.span.RecordError(err)
}

// SetStatus implements Span.SetStatus
func (o *otelSpanWrapper) SetStatus(code int, description string) {
	var statusCode codes.Code
	switch code {
	case 1:
		statusCode = codes.Ok
	case 2:
		statusCode = codes.Error
	default:
		statusCode = codes.Unset
	}
	o.span.SetStatus(statusCode, description)
}
