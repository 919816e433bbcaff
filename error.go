package trim

import (
	"context"
	"errors"

	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/segmentio/kafka-trim/protocol"
)

const (
	// ErrUnsupportedVersion is matched (with errors.Is) by errors returned
	// when a message is built, encoded or decoded at a version that the
	// DeleteRecords api does not define.
	ErrUnsupportedVersion = protocol.ErrUnsupportedVersion

	// ErrMalformedMessage is matched (with errors.Is) by errors returned when
	// a message cannot be decoded.
	ErrMalformedMessage = protocol.ErrMalformed
)

// ErrorCode maps err to the kafka error code reported to clients. The mapping
// is total: nil maps to zero and errors with no specific code map to
// UNKNOWN_SERVER_ERROR.
//
// Errors may carry their own code by implementing:
//
//	interface{ ErrorCode() int16 }
func ErrorCode(err error) int16 {
	if err == nil {
		return 0
	}

	var coder interface{ ErrorCode() int16 }
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}

	var kafkaErr *kerr.Error
	if errors.As(err, &kafkaErr) {
		return kafkaErr.Code
	}

	switch {
	case errors.Is(err, ErrUnsupportedVersion):
		return kerr.UnsupportedVersion.Code
	case errors.Is(err, ErrMalformedMessage):
		return kerr.CorruptMessage.Code
	case errors.Is(err, context.DeadlineExceeded):
		return kerr.RequestTimedOut.Code
	default:
		return kerr.UnknownServerError.Code
	}
}

// Error returns the error matching a kafka error code, or nil if code is
// zero. Programs may compare the result with the kerr package variables using
// errors.Is.
func Error(code int16) error {
	if code == 0 {
		return nil
	}
	return kerr.ErrorForCode(code)
}
