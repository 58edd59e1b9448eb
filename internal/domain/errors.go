package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a request failed
type ErrorKind string

const (
	KindInvalidInput          ErrorKind = "invalid_input"
	KindMetadataFailure       ErrorKind = "metadata_failure"
	KindDownloadFailure       ErrorKind = "download_failure"
	KindReconciliationFailure ErrorKind = "reconciliation_failure"
	KindUnexpectedFailure     ErrorKind = "unexpected_failure"
)

// ErrEngineFailure is wrapped by every error the extraction engine reports
// as its own failure (non-zero exit, unparseable output).
var ErrEngineFailure = errors.New("extraction engine failure")

// ErrFileNotFound is returned when a downloads-directory file does not exist
var ErrFileNotFound = errors.New("file not found")

// MediaError is a classified failure. Msg is safe to show to clients.
type MediaError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// NewMediaError creates a classified error
func NewMediaError(kind ErrorKind, msg string, err error) *MediaError {
	return &MediaError{Kind: kind, Msg: msg, Err: err}
}

func (e *MediaError) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// KindOf reports the ErrorKind carried by err, or KindUnexpectedFailure
// when err is not a MediaError.
func KindOf(err error) ErrorKind {
	var me *MediaError
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindUnexpectedFailure
}

// IsKind reports whether err carries the given ErrorKind
func IsKind(err error, kind ErrorKind) bool {
	var me *MediaError
	return errors.As(err, &me) && me.Kind == kind
}

// EngineError wraps an engine failure message with ErrEngineFailure
func EngineError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEngineFailure, fmt.Sprintf(format, args...))
}
