package services

import "fmt"

// StructuralParseError reports an input spreadsheet whose structure could not
// be recognized (header row, columns). It is fatal and aborts the import
// before any persistence.
type StructuralParseError struct {
	Reason string
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("structural parse error: %s", e.Reason)
}

// ValidationError reports a precondition failure (missing baseline, invalid
// round selection, missing catalog). It is fatal; nothing is persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// ConflictError reports a hierarchy creation attempted on a project that
// already has WBS data. Fatal, like ValidationError.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

func structuralErrorf(format string, args ...any) error {
	return &StructuralParseError{Reason: fmt.Sprintf(format, args...)}
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
