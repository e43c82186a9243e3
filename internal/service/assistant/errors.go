package assistant

import (
	"errors"
	"fmt"

	"mediachat/internal/models"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedMedia  = errors.New("unsupported media")
	ErrProcessingTimeout = errors.New("asset still processing after max poll attempts")
	ErrContentNotFound   = errors.New("content not found")
)

// Error kinds reported to clients.
const (
	KindInvalidInput      = "invalid_input"
	KindNotFound          = "not_found"
	KindAcquisition       = "acquisition"
	KindUpload            = "upload"
	KindProcessingFailed  = "processing_failed"
	KindProcessingTimeout = "processing_timeout"
	KindInference         = "inference"
	KindInternal          = "internal"
)

// StepError tags an error with the pipeline step that produced it.
// The message is the underlying error's, unchanged.
type StepError struct {
	Kind string
	Err  error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(kind string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Kind: kind, Err: err}
}

// AssetFailedError reports that the provider could not process an upload.
type AssetFailedError struct {
	Name    string
	State   models.AssetState
	Message string
}

func (e *AssetFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("asset %s processing failed: %s (%s)", e.Name, e.State, e.Message)
	}
	return fmt.Sprintf("asset %s processing failed: %s", e.Name, e.State)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ErrorKind classifies err for API responses.
func ErrorKind(err error) string {
	var failed *AssetFailedError
	var step *StepError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &failed):
		return KindProcessingFailed
	case errors.Is(err, ErrProcessingTimeout):
		return KindProcessingTimeout
	case errors.As(err, &step):
		return step.Kind
	case errors.Is(err, ErrContentNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedMedia), errors.Is(err, models.ErrInvalidConfig):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
