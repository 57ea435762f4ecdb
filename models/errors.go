package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure by the stage that produced it.
type ErrorKind string

const (
	KindNetwork       ErrorKind = "network"
	KindParse         ErrorKind = "parse"
	KindStorage       ErrorKind = "storage"
	KindAnalysis      ErrorKind = "analysis"
	KindVisualization ErrorKind = "visualization"
)

// Class returns the display name used in user-facing diagnostics.
func (k ErrorKind) Class() string {
	switch k {
	case KindNetwork:
		return "NetworkError"
	case KindParse:
		return "ParseError"
	case KindStorage:
		return "StorageError"
	case KindAnalysis:
		return "AnalysisError"
	case KindVisualization:
		return "VisualizationError"
	default:
		return "Error"
	}
}

// PipelineError is the error type returned by every pipeline component.
// It carries the failure kind and supports error wrapping via Unwrap.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewNetworkError wraps a transport or HTTP status failure.
func NewNetworkError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindNetwork, Message: message, Err: err}
}

// NewParseError wraps a markup structure mismatch.
func NewParseError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindParse, Message: message, Err: err}
}

// NewStorageError wraps an I/O failure while writing the table.
func NewStorageError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindStorage, Message: message, Err: err}
}

// NewAnalysisError wraps a failure while reloading or aggregating the table.
func NewAnalysisError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindAnalysis, Message: message, Err: err}
}

// NewVisualizationError wraps a chart rendering failure.
func NewVisualizationError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindVisualization, Message: message, Err: err}
}

// KindOf returns the kind of the outermost PipelineError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}
