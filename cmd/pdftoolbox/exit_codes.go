package main

import (
	"context"
	"errors"
	"os"

	"github.com/Lllllllleong/pdftoolbox/internal/app"
	"github.com/Lllllllleong/pdftoolbox/internal/config"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
)

// Exit codes for the pdftoolbox CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0   // Operation completed
	ExitGeneral     = 1   // General/unexpected error
	ExitUsage       = 2   // Invalid flags, config, or selection
	ExitIO          = 3   // File not found, permission denied, write failure
	ExitDocument    = 4   // Unreadable document or page failure
	ExitInterrupted = 130 // Cancelled by signal
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	// Document errors (exit 4)
	if errors.Is(err, models.ErrDocumentUnreadable) ||
		errors.Is(err, models.ErrPageRenderFailed) {
		return ExitDocument
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrConfigInvalid) ||
		errors.Is(err, models.ErrInvalidSelection) ||
		errors.Is(err, app.ErrBusy) {
		return ExitUsage
	}

	return ExitGeneral
}
