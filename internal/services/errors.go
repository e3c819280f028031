package services

import (
	"errors"
	"fmt"
	"strings"

	"quizsync/internal/journal"
)

var (
	ErrExtraction    = errors.New("extraction error")
	ErrNotFound      = errors.New("not found")
	ErrTransport     = errors.New("transport error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker for later run-status classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a pipeline error to the journal status the orchestrator
// should persist after the run fails. Extraction and configuration failures
// happen before any sink is touched; a failure after the ledger write leaves
// the two sinks out of step, which the next run detects and repairs.
func FailureStatus(err error, ledgerTouched bool) journal.Status {
	switch {
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrConfiguration):
		return journal.StatusFailed
	default:
		if ledgerTouched {
			return journal.StatusPartial
		}
		return journal.StatusFailed
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
