package errors

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrEmptySession      = errors.New("missing session")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrEmptySubject      = errors.New("missing subject")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUpstreamMalformed = errors.New("malformed upstream response")
)

func HandleError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.AddEvent(err.Error())
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
