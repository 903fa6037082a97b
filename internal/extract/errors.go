package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse means a body could not be decoded as its
	// declared shape. The fetcher counts it as a failed attempt.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSchemaMismatch means decoded rows disagree with the declared
	// columns. It is never retried.
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrNetworkExhausted = errors.New("network exhausted")
	// ErrInvalidParameter is raised before any request is made.
	ErrInvalidParameter = errors.New("invalid parameter")
)

type ExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempt(s) to %s failed, last: %v", ErrNetworkExhausted, e.Attempts, e.URL, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrNetworkExhausted, e.Last}
}

type Stage string

const (
	StageValidate Stage = "validate"
	StageFetch    Stage = "fetch"
	StageDecode   Stage = "decode"
	StageMap      Stage = "map"
)

// StageError is the single error a failed pipeline run returns, it names
// the dataset and the stage that failed.
type StageError struct {
	Dataset string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Dataset, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageOf(err error) Stage {
	switch {
	case errors.Is(err, ErrInvalidParameter):
		return StageValidate
	case errors.Is(err, ErrSchemaMismatch):
		return StageMap
	case errors.Is(err, ErrMalformedResponse):
		return StageDecode
	}
	return StageFetch
}
