package observability

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// kindedError is implemented by request failures that carry a classification
type kindedError interface {
	error
	ErrorKind() string
}

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		var kinded kindedError
		if errors.As(*errPtr, &kinded) {
			span.SetAttributes(AttributeErrorKind(kinded.ErrorKind()))
		}
		span.RecordError(*errPtr, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, (*errPtr).Error())
	}
	span.End()
}
