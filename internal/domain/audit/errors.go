package audit

import (
	"errors"
	"fmt"
)

var (
	ErrNotIdle          = errors.New("analysis can only start from idle")
	ErrAnalysisInFlight = errors.New("analysis already running")
	ErrExportInFlight   = errors.New("report export already in progress")
	ErrNoResult         = errors.New("no analysis result to export")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoticeNotFound   = errors.New("notification not found")
	ErrTooManySessions  = errors.New("too many active sessions")
)

// ValidationError is returned when user input can't start an analysis.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ExportError is returned when a report document can't be produced.
// StatusCode is the upstream HTTP status, 0 when no response was received.
type ExportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ExportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to generate report: %d - %s", e.StatusCode, e.Message)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("failed to generate report: %s: %v", e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("failed to generate report: %v", e.Err)
	default:
		return "failed to generate report: " + e.Message
	}
}

func (e *ExportError) Unwrap() error { return e.Err }
