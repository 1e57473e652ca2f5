package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by every tool. Library errors are normalised into one of
// these at the operation boundary.
var (
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrStrategyFailed     = errors.New("compression strategy failed")
	ErrPageRenderFailed   = errors.New("page render failed")
	ErrInvalidSelection   = errors.New("invalid selection")
)

// PageError identifies the 1-based page that failed during a multi-page loop.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() []error {
	return []error{ErrPageRenderFailed, e.Err}
}

// Invalidf builds an ErrInvalidSelection with a descriptive message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSelection, fmt.Sprintf(format, args...))
}

// UserMessage turns an operation error into the plain-language message shown
// to the user. The tool stays usable afterwards.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PageError
	switch {
	case errors.Is(err, ErrInvalidSelection):
		return err.Error()
	case errors.As(err, &pe):
		return fmt.Sprintf("Page %d could not be processed. The PDF may be damaged.", pe.Page)
	case errors.Is(err, ErrDocumentUnreadable):
		return "The PDF could not be read. It may be corrupted or use an unsupported encryption."
	default:
		return fmt.Sprintf("Processing failed: %v", err)
	}
}
