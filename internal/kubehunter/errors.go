package kubehunter

import (
	"errors"
	"fmt"
)

// ErrUnsupportedInput is wrapped by a DecodeError when the input has a Go
// type the parser doesn't know how to read.
var ErrUnsupportedInput = errors.New("unsupported input type")

// InputKind describes the form the raw report was handed over in.
type InputKind string

const (
	// InputText is serialized JSON given as bytes or a string.
	InputText InputKind = "text"
	// InputReader is serialized JSON read from an io.Reader.
	InputReader InputKind = "reader"
	// InputDocument is an already-decoded document.
	InputDocument InputKind = "document"
)

// DecodeError is returned when the raw report is not valid JSON or does not
// have the shape of a kube-hunter report.
type DecodeError struct {
	Err   error
	Input InputKind
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("kube-hunter report decode error (%s input): %v", e.Input, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError checks if err is, or wraps, a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func newDecodeError(input InputKind, err error) *DecodeError {
	return &DecodeError{Input: input, Err: err}
}
