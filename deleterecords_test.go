package trim

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/segmentio/kafka-trim/protocol/deleterecords"
)

const (
	v0 = 0
	v1 = 1
)

var (
	t0 = TopicPartition{Topic: "T", Partition: 0}
	t1 = TopicPartition{Topic: "T", Partition: 1}
	u0 = TopicPartition{Topic: "U", Partition: 0}
)

func exampleOffsets() map[TopicPartition]int64 {
	return map[TopicPartition]int64{
		t0: 50,
		t1: HighWatermark,
		u0: 10,
	}
}

func TestDeleteRecordsRequestEncode(t *testing.T) {
	req := NewDeleteRecordsBuilder(time.Second, exampleOffsets()).Build(v0)

	m, err := req.Encode()
	require.NoError(t, err)

	assert.Equal(t, &deleterecords.Request{
		Topics: []deleterecords.RequestTopic{
			{
				Name: "T",
				Partitions: []deleterecords.RequestPartition{
					{PartitionIndex: 0, Offset: 50},
					{PartitionIndex: 1, Offset: -1},
				},
			},
			{
				Name: "U",
				Partitions: []deleterecords.RequestPartition{
					{PartitionIndex: 0, Offset: 10},
				},
			},
		},
		TimeoutMs: 1000,
	}, m)

	decoded, err := DecodeDeleteRecordsRequest(m, v0)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestDeleteRecordsRequestRoundTrip(t *testing.T) {
	tests := map[string]map[TopicPartition]int64{
		"empty":          {},
		"single":         {{Topic: "a", Partition: 0}: 0},
		"high watermark": {{Topic: "a", Partition: 3}: HighWatermark},
		"large offsets":  {{Topic: "a", Partition: 1}: 1 << 62, {Topic: "b", Partition: 1<<31 - 1}: 7},
		"example":        exampleOffsets(),
	}

	for name, offsets := range tests {
		t.Run(name, func(t *testing.T) {
			req := NewDeleteRecordsBuilder(1500*time.Millisecond, offsets).Build(v0)

			b, err := req.MarshalBinary()
			require.NoError(t, err)

			found, err := ParseDeleteRecordsRequest(b, v0)
			require.NoError(t, err)

			assert.Equal(t, offsets, found.Offsets())
			assert.Equal(t, req.Timeout(), found.Timeout())
			assert.Equal(t, req.Version(), found.Version())

			again, err := found.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, again, "re-encoding must produce the same bytes")
		})
	}
}

func TestDeleteRecordsRequestDeterministic(t *testing.T) {
	var last []byte

	for i := 0; i < 20; i++ {
		offsets := make(map[TopicPartition]int64)
		for j := 0; j < 50; j++ {
			k := (j*7 + i) % 50
			offsets[TopicPartition{Topic: fmt.Sprintf("topic-%d", k%5), Partition: int32(k)}] = int64(k)
		}

		b, err := NewDeleteRecordsBuilder(time.Second, offsets).Build(v0).MarshalBinary()
		require.NoError(t, err)

		if last != nil {
			require.Equal(t, last, b)
		}
		last = b
	}
}

func TestDeleteRecordsRequestUnsupportedVersion(t *testing.T) {
	builder := NewDeleteRecordsBuilder(time.Second, exampleOffsets())

	for _, version := range []int16{-1, v1, 2, 100} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			req := builder.Build(version)
			assert.Equal(t, version, req.Version())

			m, err := req.Encode()
			assert.ErrorIs(t, err, ErrUnsupportedVersion)
			assert.Nil(t, m)

			b, err := req.MarshalBinary()
			assert.ErrorIs(t, err, ErrUnsupportedVersion)
			assert.Nil(t, b)

			res, err := req.ErrorResponse(0, context.DeadlineExceeded)
			assert.ErrorIs(t, err, ErrUnsupportedVersion)
			assert.Nil(t, res)

			decoded, err := DecodeDeleteRecordsRequest(&deleterecords.Request{}, version)
			assert.ErrorIs(t, err, ErrUnsupportedVersion)
			assert.Nil(t, decoded)

			parsed, err := ParseDeleteRecordsRequest([]byte{0, 0, 0, 0, 0, 0, 0, 0}, version)
			assert.ErrorIs(t, err, ErrUnsupportedVersion)
			assert.Nil(t, parsed)
		})
	}
}

func TestDecodeDeleteRecordsRequestMalformed(t *testing.T) {
	tests := map[string]*deleterecords.Request{
		"nil message": nil,
		"negative partition": {
			Topics: []deleterecords.RequestTopic{
				{Name: "T", Partitions: []deleterecords.RequestPartition{{PartitionIndex: -2, Offset: 1}}},
			},
		},
		"duplicate partition in a topic": {
			Topics: []deleterecords.RequestTopic{
				{Name: "T", Partitions: []deleterecords.RequestPartition{{PartitionIndex: 0}, {PartitionIndex: 0}}},
			},
		},
		"duplicate partition across topics": {
			Topics: []deleterecords.RequestTopic{
				{Name: "T", Partitions: []deleterecords.RequestPartition{{PartitionIndex: 0}}},
				{Name: "T", Partitions: []deleterecords.RequestPartition{{PartitionIndex: 0}}},
			},
		},
	}

	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := DecodeDeleteRecordsRequest(m, v0)
			assert.ErrorIs(t, err, ErrMalformedMessage)
			assert.Nil(t, req)
		})
	}
}

func TestDecodeDeleteRecordsRequestRepeatedTopic(t *testing.T) {
	req, err := DecodeDeleteRecordsRequest(&deleterecords.Request{
		Topics: []deleterecords.RequestTopic{
			{Name: "T", Partitions: []deleterecords.RequestPartition{{PartitionIndex: 1, Offset: 5}}},
			{Name: "T", Partitions: []deleterecords.RequestPartition{{PartitionIndex: 0, Offset: 4}}},
		},
		TimeoutMs: 10,
	}, v0)
	require.NoError(t, err)

	assert.Equal(t, map[TopicPartition]int64{t0: 4, t1: 5}, req.Offsets())
	assert.Equal(t, 10*time.Millisecond, req.Timeout())
}

func TestParseDeleteRecordsRequestMalformed(t *testing.T) {
	b, err := NewDeleteRecordsBuilder(time.Second, exampleOffsets()).Build(v0).MarshalBinary()
	require.NoError(t, err)

	inputs := map[string][]byte{
		"empty":          nil,
		"truncated":      b[:len(b)-1],
		"trailing bytes": append(append([]byte{}, b...), 0xff),
		"negative topic name length": {
			0, 0, 0, 1,
			0xff, 0xff,
			0, 0, 0, 0,
			0, 0, 0, 0,
		},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			req, err := ParseDeleteRecordsRequest(input, v0)
			assert.ErrorIs(t, err, ErrMalformedMessage)
			assert.Nil(t, req)
		})
	}
}

func TestDeleteRecordsBuilder(t *testing.T) {
	offsets := exampleOffsets()
	builder := NewDeleteRecordsBuilder(time.Second, offsets)

	offsets[t0] = 999
	delete(offsets, u0)

	r1 := builder.Build(v0)
	r2 := builder.Build(v0)

	assert.Equal(t, exampleOffsets(), r1.Offsets(), "builder must not observe changes to the caller's map")
	assert.Equal(t, r1, r2)

	m := r1.Offsets()
	m[t0] = 1
	offset, ok := r1.Offset(t0)
	assert.True(t, ok)
	assert.Equal(t, int64(50), offset, "requests must not expose their internal map")

	_, ok = r1.Offset(TopicPartition{Topic: "missing"})
	assert.False(t, ok)

	assert.Equal(t, 3, r1.Len())
	assert.Equal(t, 3, builder.Len())
	assert.Equal(t, time.Second, builder.Timeout())
	assert.Equal(t, []TopicPartition{t0, t1, u0}, r1.Partitions())
}

func TestDeleteRecordsString(t *testing.T) {
	const expected = "(type=DeleteRecordsRequest, timeout=1000, partitionOffsets=(T-0=50, T-1=-1, U-0=10))"

	builder := NewDeleteRecordsBuilder(time.Second, exampleOffsets())
	assert.Equal(t, expected, builder.String())
	assert.Equal(t, expected, builder.Build(v0).String())

	assert.Equal(t,
		"(type=DeleteRecordsRequest, timeout=0, partitionOffsets=())",
		NewDeleteRecordsBuilder(0, nil).String(),
	)
}

func TestDeleteRecordsRequestTimeoutClamp(t *testing.T) {
	req := NewDeleteRecordsBuilder(365*24*time.Hour, nil).Build(v0)
	assert.Equal(t, int32(1<<31-1), req.TimeoutMs())
}

func TestDeleteRecordsErrorResponse(t *testing.T) {
	req := NewDeleteRecordsBuilder(time.Second, exampleOffsets()).Build(v0)

	res, err := req.ErrorResponse(20*time.Millisecond, kerr.NotLeaderForPartition)
	require.NoError(t, err)

	assert.Equal(t, req.Version(), res.Version())
	assert.Equal(t, 20*time.Millisecond, res.Throttle())
	assert.Equal(t, req.Len(), res.Len())
	assert.Equal(t, req.Partitions(), res.Partitions())

	for _, tp := range req.Partitions() {
		r, ok := res.Result(tp)
		require.True(t, ok, "missing result for %s", tp)
		assert.Equal(t, InvalidLowWatermark, r.LowWatermark)
		assert.Equal(t, kerr.NotLeaderForPartition.Code, r.ErrorCode)
		assert.ErrorIs(t, r.Err(), kerr.NotLeaderForPartition)
	}

	assert.Len(t, res.Errors(), 3)
}

func TestDeleteRecordsErrorResponseCauses(t *testing.T) {
	req := NewDeleteRecordsBuilder(time.Second, map[TopicPartition]int64{t0: 1}).Build(v0)

	causes := map[string]struct {
		err  error
		code int16
	}{
		"timeout":          {context.DeadlineExceeded, kerr.RequestTimedOut.Code},
		"malformed":        {ErrMalformedMessage, kerr.CorruptMessage.Code},
		"unknown":          {fmt.Errorf("disk on fire"), kerr.UnknownServerError.Code},
		"out of range":     {kerr.OffsetOutOfRange, kerr.OffsetOutOfRange.Code},
		"policy violation": {fmt.Errorf("denied: %w", kerr.PolicyViolation), kerr.PolicyViolation.Code},
		"nil":              {nil, kerr.UnknownServerError.Code},
	}

	for name, cause := range causes {
		t.Run(name, func(t *testing.T) {
			res, err := req.ErrorResponse(0, cause.err)
			require.NoError(t, err)
			r, _ := res.Result(t0)
			assert.Equal(t, cause.code, r.ErrorCode)
		})
	}
}

func TestDeleteRecordsErrorResponseEdgeCases(t *testing.T) {
	t.Run("empty request", func(t *testing.T) {
		res, err := NewDeleteRecordsBuilder(0, nil).Build(v0).ErrorResponse(0, kerr.UnknownServerError)
		require.NoError(t, err)
		assert.Zero(t, res.Len())

		b, err := res.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, b)
	})

	t.Run("negative throttle", func(t *testing.T) {
		res, err := NewDeleteRecordsBuilder(0, exampleOffsets()).Build(v0).ErrorResponse(-time.Second, kerr.UnknownServerError)
		require.NoError(t, err)
		assert.Zero(t, res.Throttle())

		m, err := res.Encode()
		require.NoError(t, err)
		assert.Zero(t, m.ThrottleTimeMs)
	})
}

func TestDeleteRecordsResponseRoundTrip(t *testing.T) {
	res := NewDeleteRecordsResponse(v0, 5*time.Millisecond, map[TopicPartition]PartitionResult{
		t0: {LowWatermark: 50},
		t1: {LowWatermark: 1200},
		u0: {LowWatermark: InvalidLowWatermark, ErrorCode: kerr.OffsetOutOfRange.Code},
	})

	b, err := res.MarshalBinary()
	require.NoError(t, err)

	found, err := ParseDeleteRecordsResponse(b, v0)
	require.NoError(t, err)
	assert.Equal(t, res, found)

	errs := found.Errors()
	assert.Len(t, errs, 1)
	assert.ErrorIs(t, errs[u0], kerr.OffsetOutOfRange)

	assert.Equal(t,
		"(type=DeleteRecordsResponse, throttleTimeMs=5, partitions=(T-0=(lowWatermark=50, errorCode=0), T-1=(lowWatermark=1200, errorCode=0), U-0=(lowWatermark=-1, errorCode=1)))",
		found.String(),
	)
}

func TestDeleteRecordsResponseUnsupportedVersion(t *testing.T) {
	res := NewDeleteRecordsResponse(v1, 0, nil)

	_, err := res.Encode()
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = ParseDeleteRecordsResponse([]byte{0, 0, 0, 0, 0, 0, 0, 0}, v1)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeDeleteRecordsResponse(&deleterecords.Response{}, v1)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeDeleteRecordsResponseMalformed(t *testing.T) {
	_, err := DecodeDeleteRecordsResponse(nil, v0)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeDeleteRecordsResponse(&deleterecords.Response{
		Topics: []deleterecords.ResponseTopic{
			{Name: "T", Partitions: []deleterecords.ResponsePartition{{PartitionIndex: 0}, {PartitionIndex: 0}}},
		},
	}, v0)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = ParseDeleteRecordsResponse([]byte{0, 0, 0}, v0)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDeleteRecordsRequestEncodeNegativePartition(t *testing.T) {
	req := NewDeleteRecordsBuilder(time.Second, map[TopicPartition]int64{
		t0:                          1,
		{Topic: "T", Partition: -1}: 2,
	}).Build(v0)

	m, err := req.Encode()
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Nil(t, m)

	b, err := req.MarshalBinary()
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Nil(t, b)

	res, err := req.ErrorResponse(0, kerr.UnknownServerError)
	require.NoError(t, err)

	b, err = res.MarshalBinary()
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Nil(t, b)
}

func TestDeleteRecordsResponseEncodeNegativePartition(t *testing.T) {
	res := NewDeleteRecordsResponse(v0, 0, map[TopicPartition]PartitionResult{
		{Topic: "T", Partition: -3}: {LowWatermark: InvalidLowWatermark},
	})

	m, err := res.Encode()
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Nil(t, m)
}

func TestDeleteRecordsTopicNameTooLong(t *testing.T) {
	long := TopicPartition{Topic: strings.Repeat("x", 40000)}

	req := NewDeleteRecordsBuilder(time.Second, map[TopicPartition]int64{long: 1}).Build(v0)
	b, err := req.MarshalBinary()
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Nil(t, b)

	res := NewDeleteRecordsResponse(v0, 0, map[TopicPartition]PartitionResult{long: {}})
	b, err = res.MarshalBinary()
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Nil(t, b)

	// the longest name the int16 prefix can carry still round trips
	longest := TopicPartition{Topic: strings.Repeat("x", 32767)}
	b, err = NewDeleteRecordsBuilder(time.Second, map[TopicPartition]int64{longest: 1}).Build(v0).MarshalBinary()
	require.NoError(t, err)

	parsed, err := ParseDeleteRecordsRequest(b, v0)
	require.NoError(t, err)
	assert.Equal(t, map[TopicPartition]int64{longest: 1}, parsed.Offsets())
}

// The kmsg package of franz-go implements the DeleteRecords api independently,
// the bytes produced by both libraries must be identical.
func TestDeleteRecordsRequestMatchesKmsg(t *testing.T) {
	b, err := NewDeleteRecordsBuilder(time.Second, exampleOffsets()).Build(v0).MarshalBinary()
	require.NoError(t, err)

	ref := kmsg.DeleteRecordsRequest{
		Version: v0,
		Topics: []kmsg.DeleteRecordsRequestTopic{
			{
				Topic: "T",
				Partitions: []kmsg.DeleteRecordsRequestTopicPartition{
					{Partition: 0, Offset: 50},
					{Partition: 1, Offset: -1},
				},
			},
			{
				Topic: "U",
				Partitions: []kmsg.DeleteRecordsRequestTopicPartition{
					{Partition: 0, Offset: 10},
				},
			},
		},
		TimeoutMillis: 1000,
	}

	assert.Equal(t, ref.AppendTo(nil), b)

	parsed := kmsg.NewPtrDeleteRecordsRequest()
	parsed.Version = v0
	require.NoError(t, parsed.ReadFrom(b))
	assert.Equal(t, int32(1000), parsed.TimeoutMillis)
	require.Len(t, parsed.Topics, 2)
	assert.Equal(t, "U", parsed.Topics[1].Topic)
}

func TestDeleteRecordsResponseMatchesKmsg(t *testing.T) {
	ref := kmsg.DeleteRecordsResponse{
		Version:        v0,
		ThrottleMillis: 7,
		Topics: []kmsg.DeleteRecordsResponseTopic{
			{
				Topic: "T",
				Partitions: []kmsg.DeleteRecordsResponseTopicPartition{
					{Partition: 0, LowWatermark: 50},
					{Partition: 1, LowWatermark: -1, ErrorCode: kerr.OffsetOutOfRange.Code},
				},
			},
		},
	}

	res, err := ParseDeleteRecordsResponse(ref.AppendTo(nil), v0)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Millisecond, res.Throttle())
	assert.Equal(t, map[TopicPartition]PartitionResult{
		t0: {LowWatermark: 50},
		t1: {LowWatermark: -1, ErrorCode: kerr.OffsetOutOfRange.Code},
	}, res.Results())

	b, err := res.MarshalBinary()
	require.NoError(t, err)

	parsed := kmsg.NewPtrDeleteRecordsResponse()
	parsed.Version = v0
	require.NoError(t, parsed.ReadFrom(b))
	assert.Equal(t, int32(7), parsed.ThrottleMillis)
	require.Len(t, parsed.Topics, 1)
	require.Len(t, parsed.Topics[0].Partitions, 2)
	assert.Equal(t, kerr.OffsetOutOfRange.Code, parsed.Topics[0].Partitions[1].ErrorCode)
}
