package main

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind tags a PipelineError with which stage failed and how.
type ErrorKind string

const (
	ErrInvalidInput        ErrorKind = "invalid_input"
	ErrUnsupportedPlatform ErrorKind = "unsupported_platform"
	ErrDownloadFailed      ErrorKind = "download_failed"
	ErrDownloadTimeout     ErrorKind = "download_timeout"
	ErrTranscodeFailed     ErrorKind = "transcode_failed"
	ErrRecognitionFailed   ErrorKind = "recognition_failed"
	ErrUpstreamRateLimited ErrorKind = "upstream_rate_limited"
	ErrInternal            ErrorKind = "internal"
)

// errNoMatch is the "valid empty result" outcome of recognition: the upstream
// answered but found no music. It is not a pipeline failure and maps to an
// HTTP 200 with an explicit no-match body.
var errNoMatch = errors.New("no music found")

// PipelineError is the error type surfaced by every pipeline stage. Detail
// carries diagnostic text (typically captured stderr) that is safe to return
// to the caller; Err is the wrapped cause, if any.
type PipelineError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Detail != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v | %s", e.Kind, e.Err, e.Detail)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func pipelineErrorf(kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// errorKind extracts the taxonomy tag from any error in the chain, falling
// back to ErrInternal for untyped errors.
func errorKind(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrInternal
}

func httpStatusFor(kind ErrorKind) int {
	switch kind {
	case ErrInvalidInput, ErrUnsupportedPlatform:
		return http.StatusBadRequest
	case ErrUpstreamRateLimited:
		return http.StatusTooManyRequests
	case ErrDownloadTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
