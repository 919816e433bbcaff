package protocol

import (
	"errors"
	"fmt"
)

const (
	ErrTruncated          = Error("truncated")
	ErrNegativeLength     = Error("negative length")
	ErrTrailingBytes      = Error("trailing bytes")
	ErrMalformed          = Error("malformed message")
	ErrUnsupportedVersion = Error("unsupported version")
	ErrUnsupportedAPI     = Error("unsupported api")
)

// Error is a string type implementing the error interface and used to declare
// constants representing recoverable protocol errors.
type Error string

func (e Error) Error() string { return string(e) }

func errorf(msg string, args ...interface{}) error {
	return Error(fmt.Sprintf(msg, args...))
}

// VersionError is returned when a message is read or written with a version
// that was not registered for its api.
type VersionError struct {
	ApiKey     ApiKey
	Version    int16
	MinVersion int16
	MaxVersion int16
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported %s version: v%d not in range v%d-v%d",
		e.ApiKey, e.Version, e.MinVersion, e.MaxVersion)
}

func (e *VersionError) Is(target error) bool { return target == ErrUnsupportedVersion }

// MalformedError is returned when the bytes of a message do not match the
// field layout of the version it was decoded with.
type MalformedError struct {
	ApiKey  ApiKey
	Version int16
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s v%d message: %v", e.ApiKey, e.Version, e.Err)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

func (e *MalformedError) Unwrap() error { return e.Err }

// shapeError converts errors produced by a reader or writer into the error
// returned to the caller. Shape errors are reported as *MalformedError, I/O
// errors are passed through.
func shapeError(k ApiKey, version int16, err error) error {
	var shape Error
	if err == nil || !errors.As(err, &shape) {
		return err
	}
	return &MalformedError{ApiKey: k, Version: version, Err: err}
}
