package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToExport  = errors.New("no transactions to export")
	ErrAlreadyCommitted = errors.New("import already committed")
)

// EncodingError means an export payload could not be produced.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return fmt.Sprintf("encode transactions: %v", e.Err) }
func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) UserMessage() string {
	if errors.Is(e.Err, ErrNothingToExport) {
		return "There are no transactions to export."
	}
	return "Could not create the export: " + e.Err.Error()
}

// Source tells which import path produced a decoding failure.
type Source string

const (
	SourceCode Source = "code"
	SourceFile Source = "file"
)

// DecodingError means the payload could not be read. Nothing was imported.
type DecodingError struct {
	Source Source
	Err    error
}

func (e *DecodingError) Error() string { return fmt.Sprintf("invalid %s: %v", e.Source, e.Err) }
func (e *DecodingError) Unwrap() error { return e.Err }

func (e *DecodingError) UserMessage() string {
	if e.Source == SourceFile {
		return "Invalid backup file."
	}
	return "Invalid code."
}

// ValidationError means the payload decoded but is not a well-formed
// transaction list.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid import: " + e.Reason }

func (e *ValidationError) UserMessage() string {
	return "The data is not a valid transaction list: " + e.Reason
}
