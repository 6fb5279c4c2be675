package hiring

import (
	"errors"
	"fmt"
)

// ErrSourceNotFound indicates the spreadsheet does not exist at the configured path.
var ErrSourceNotFound = errors.New("source not found")

// ErrSchemaMismatch indicates a required column is absent from the header row.
var ErrSchemaMismatch = errors.New("schema mismatch")

// LoadError describes a failed snapshot computation.
// Kind is ErrSourceNotFound, ErrSchemaMismatch or nil for anything else.
type LoadError struct {
	Kind   error
	Path   string
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrSourceNotFound):
		return fmt.Sprintf("Excel file '%s' not found.", e.Path)
	case errors.Is(e.Kind, ErrSchemaMismatch):
		return fmt.Sprintf("Excel sheet column '%s' not found.", e.Column)
	case e.Err != nil:
		return "error: " + e.Err.Error()
	default:
		return "error: unknown failure"
	}
}

func (e *LoadError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func sourceNotFound(path string, err error) *LoadError {
	return &LoadError{Kind: ErrSourceNotFound, Path: path, Err: err}
}

func schemaMismatch(path, column string) *LoadError {
	return &LoadError{Kind: ErrSchemaMismatch, Path: path, Column: column}
}

func unexpected(path string, err error) *LoadError {
	return &LoadError{Path: path, Err: err}
}

// ErrorPayload converts any error into the wire error shape.
func ErrorPayload(err error) Payload {
	if err == nil {
		return Payload{Error: "error: unknown failure"}
	}
	var le *LoadError
	if errors.As(err, &le) {
		return Payload{Error: le.Error()}
	}
	return Payload{Error: "error: " + err.Error()}
}
