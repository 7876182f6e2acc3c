package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks programmer or configuration errors that make the
	// current call unservable. Fatal to the call, never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransient marks network or timing failures that were retried locally
	// and still failed. Surfaced as a stage failure.
	ErrTransient = errors.New("transient failure")
	// ErrUnavailable marks expected absences (no transcript, no authenticated
	// channel). Recorded, processing continues at a coarser granularity.
	ErrUnavailable = errors.New("resource unavailable")
	// ErrIdentityMismatch marks a safety check failure: the authenticated
	// session does not belong to the expected channel. Always aborts that
	// channel's upload.
	ErrIdentityMismatch = errors.New("channel identity mismatch")
	// ErrExternalTool marks failures reported by external binaries
	// (yt-dlp, ffmpeg, ffprobe).
	ErrExternalTool = errors.New("external tool error")
	// ErrTimeout marks wall-clock timeouts of external operations.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether the error represents a programmer or configuration
// mistake that retrying cannot fix.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
