package speech

import "errors"

// Common errors for the speech pipeline.
var (
	// Splitter errors
	ErrChunkSizeTooSmall = errors.New("chunk size must be at least 4")

	// Builder errors
	ErrNoSpeechText = errors.New("require speech text")
	ErrBadTempDir   = errors.New("temporal directory is not a directory")

	// Pipeline outcomes
	ErrCancelled      = errors.New("speech was cancelled")
	ErrPartialFailure = errors.New("some chunks failed to synthesize")
)
