package recognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
)

var (
	// ErrEngineUnavailable is returned when the OCR engine cannot be reached:
	// the executable is missing, the library was not compiled in, or the
	// remote service has no credentials or refuses connections.
	ErrEngineUnavailable = errors.New("OCR engine unavailable")

	// ErrEngineTimeout is returned when a single engine call exceeds the configured bound.
	ErrEngineTimeout = errors.New("OCR engine timed out")
)

// Error kinds reported per item in a batch
const (
	KindDecode            = "decode_error"
	KindEngineUnavailable = "ocr_engine_unavailable"
	KindEngineTimeout     = "ocr_engine_timeout"
	KindCanceled          = "canceled"
	KindFailed            = "ocr_failed"
)

// Error wraps a recognition failure with the operation and file it happened on.
type Error struct {
	// Op is the operation that failed (e.g., "Process", "Recognize").
	Op string

	// Filename is the uploaded file name, if known.
	Filename string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("recognition: %s %q: %v", e.Op, e.Filename, e.Err)
	}
	return fmt.Sprintf("recognition: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Kind classifies err for per-item status reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, preprocess.ErrDecode):
		return KindDecode
	case errors.Is(err, ErrEngineUnavailable):
		return KindEngineUnavailable
	case errors.Is(err, ErrEngineTimeout):
		return KindEngineTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindFailed
	}
}
