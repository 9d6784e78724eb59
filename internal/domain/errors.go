package domain

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrConversion        = errors.New("file conversion failed")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrAuthentication    = errors.New("authentication with model provider failed")
	ErrAccessDenied      = errors.New("access to model denied")
	ErrThrottled         = errors.New("model provider throttled the request")
	ErrTransientService  = errors.New("transient model service error")
	ErrTimeout           = errors.New("model request timed out")
	ErrParse             = errors.New("could not parse model response")
	ErrNotInsuranceCard  = errors.New("document is not an insurance card")
)

// Pipeline stages, used to name where a submission failed.
const (
	StageNormalize = "normalize"
	StageInfer     = "infer"
	StageParse     = "parse"
)

// StageError wraps an error with the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with a pipeline stage name.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the pipeline stage recorded on err, or "" if none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
