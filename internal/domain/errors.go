package domain

import "errors"

var (
	ErrNotFound          = errors.New("task not found")
	ErrEmptyPrompt       = errors.New("prompt is required")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrDuplicateTask     = errors.New("duplicate task id")
	ErrNotDownloadable   = errors.New("task has no downloadable media")
)
