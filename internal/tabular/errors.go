package tabular

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrepresentable marks values with no document-store representation.
	ErrUnrepresentable = errors.New("value has no document representation")
	// ErrNotTabular marks inputs that are not a table or a stored table.
	ErrNotTabular = errors.New("input is not tabular")
)

// CodecError reports a value or dataset that could not be normalized or
// reconstructed.
type CodecError struct {
	Op     string // normalize, encode, decode, info, csv
	Path   string // location inside the value, when known
	Reason string
	Err    error
}

func (e *CodecError) Error() string {
	msg := "codec " + e.Op + ": " + e.Reason
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CodecError) Unwrap() error { return e.Err }

func codecErr(op, path string, err error, format string, args ...any) *CodecError {
	return &CodecError{Op: op, Path: path, Reason: fmt.Sprintf(format, args...), Err: err}
}
