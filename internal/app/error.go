package app

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	KindUnknown = ErrorKind(iota)
	KindSourceUnavailable
	KindNoVideoStream
	KindNoAudioStream
	KindMuxFailure
	KindFetchFailure
)

var kindNames = map[ErrorKind]string{
	KindUnknown:           "Unknown",
	KindSourceUnavailable: "SourceUnavailable",
	KindNoVideoStream:     "NoVideoStream",
	KindNoAudioStream:     "NoAudioStream",
	KindMuxFailure:        "MuxFailure",
	KindFetchFailure:      "FetchFailure",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a pipeline failure with a message that can be shown to the API caller as is.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (err *Error) WithCause(cause error) *Error {
	err.cause = cause
	return err
}

func (err *Error) Error() string {
	msg := &strings.Builder{}
	msg.WriteString(err.Message)
	if err.cause != nil {
		_, _ = fmt.Fprintf(msg, ": %v", err.cause)
	}
	return msg.String()
}

func (err *Error) Unwrap() error {
	return err.cause
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// UserMessage returns the human-readable message of the first *Error in err's chain,
// falling back to err.Error().
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
