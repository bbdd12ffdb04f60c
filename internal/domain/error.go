package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrModelNotConfigured   = errors.New("model key not configured")
	ErrMissingAPIKey        = errors.New("model api key not configured")
	ErrTaskLocked           = errors.New("task is already being processed")
	ErrDeepAnalysisDisabled = errors.New("deep analysis is not enabled")
	ErrPromptFileMissing    = errors.New("deep analysis prompt file not found")

	// ErrSegmentCountMismatch means re-segmentation of a resumed task produced a
	// different count than the one recorded when the task first ran; completed
	// indices can no longer be trusted, so the run fails instead of silently
	// desyncing them.
	ErrSegmentCountMismatch = errors.New("segment count changed since task was created")
)
