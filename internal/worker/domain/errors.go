package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a status update matches no job row
	ErrJobNotFound = errors.New("job not found")

	// ErrMalformedMessage is returned when a queue payload cannot be parsed
	ErrMalformedMessage = errors.New("malformed render message")
)

// FailureKind identifies which pipeline stage produced a failure
type FailureKind string

const (
	FailureDownload  FailureKind = "download"
	FailureTranscode FailureKind = "transcode"
	FailureUpload    FailureKind = "upload"
)

// StageError is the explicit per-stage result for the render pipeline.
// It is always converted into a terminal FAILED job, never propagated
// past the delivery boundary.
type StageError struct {
	Kind FailureKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Kind, e.Err.Error())
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Detail is the human-readable diagnostic recorded on the FAILED job
func (e *StageError) Detail() string {
	return e.Err.Error()
}

// NewStageError wraps err with the stage it came from
func NewStageError(kind FailureKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

// StatusWriteError wraps a job-store write failure. Unlike stage
// failures it is fatal for the delivery: the store's view of the job
// no longer matches reality, so the error escapes the per-message
// boundary instead of being recorded as a FAILED job.
type StatusWriteError struct {
	Op  string
	Err error
}

func (e *StatusWriteError) Error() string {
	return fmt.Sprintf("status write %s failed: %s", e.Op, e.Err.Error())
}

func (e *StatusWriteError) Unwrap() error {
	return e.Err
}
