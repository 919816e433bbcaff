package trim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/segmentio/kafka-trim/protocol"
)

type codedError int16

func (e codedError) Error() string    { return fmt.Sprintf("coded error %d", int16(e)) }
func (e codedError) ErrorCode() int16 { return int16(e) }

func TestErrorCode(t *testing.T) {
	tests := []struct {
		scenario string
		err      error
		code     int16
	}{
		{"nil", nil, 0},
		{"kerr value", kerr.OffsetOutOfRange, kerr.OffsetOutOfRange.Code},
		{"wrapped kerr value", fmt.Errorf("deleting: %w", kerr.PolicyViolation), kerr.PolicyViolation.Code},
		{"error with a code", codedError(29), 29},
		{"wrapped error with a code", fmt.Errorf("oops: %w", codedError(41)), 41},
		{"unsupported version", ErrUnsupportedVersion, kerr.UnsupportedVersion.Code},
		{"version error", &protocol.VersionError{ApiKey: protocol.DeleteRecords, Version: 3}, kerr.UnsupportedVersion.Code},
		{"malformed message", &protocol.MalformedError{Err: protocol.ErrTruncated}, kerr.CorruptMessage.Code},
		{"deadline exceeded", context.DeadlineExceeded, kerr.RequestTimedOut.Code},
		{"anything else", io.ErrUnexpectedEOF, kerr.UnknownServerError.Code},
		{"plain error", errors.New("boom"), -1},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			assert.Equal(t, test.code, ErrorCode(test.err))
		})
	}
}

func TestErrorLookup(t *testing.T) {
	assert.NoError(t, Error(0))
	assert.ErrorIs(t, Error(kerr.OffsetOutOfRange.Code), kerr.OffsetOutOfRange)
	assert.ErrorIs(t, Error(kerr.UnknownTopicOrPartition.Code), kerr.UnknownTopicOrPartition)

	for _, err := range []error{kerr.CorruptMessage, kerr.RequestTimedOut, kerr.UnsupportedVersion} {
		assert.Equal(t, err.(*kerr.Error).Code, ErrorCode(Error(ErrorCode(err))))
	}
}
