package trim

import (
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-trim/protocol"
	"github.com/segmentio/kafka-trim/protocol/deleterecords"
)

// HighWatermark may be used as offset in a DeleteRecordsRequest to delete all
// records of a partition up to its current high watermark.
const HighWatermark int64 = -1

// DeleteRecordsRequest asks a kafka broker to delete the records of a set of
// partitions that precede the offsets given for each of them.
//
// Values of this type are immutable, they are created by a
// DeleteRecordsBuilder or decoded from a wire message, and are safe to share
// between goroutines.
type DeleteRecordsRequest struct {
	version int16
	timeout time.Duration
	offsets map[TopicPartition]int64
}

// Version returns the version of the DeleteRecords api the request is encoded
// with.
func (r *DeleteRecordsRequest) Version() int16 { return r.version }

// Timeout returns how long the broker waits for the deletion to be
// acknowledged by the replicas of each partition.
func (r *DeleteRecordsRequest) Timeout() time.Duration { return r.timeout }

// TimeoutMs returns the timeout as carried on the wire, in milliseconds.
func (r *DeleteRecordsRequest) TimeoutMs() int32 { return toMillis(r.timeout) }

// Len returns the number of partitions in the request.
func (r *DeleteRecordsRequest) Len() int { return len(r.offsets) }

// Offset returns the offset requested for tp, and whether tp is part of the
// request.
func (r *DeleteRecordsRequest) Offset(tp TopicPartition) (int64, bool) {
	offset, ok := r.offsets[tp]
	return offset, ok
}

// Offsets returns a copy of the partition offsets of the request.
func (r *DeleteRecordsRequest) Offsets() map[TopicPartition]int64 {
	return copyOffsets(r.offsets)
}

// Partitions returns the partitions of the request, sorted by topic then by
// partition index.
func (r *DeleteRecordsRequest) Partitions() []TopicPartition {
	return sortedPartitions(r.offsets)
}

func (r *DeleteRecordsRequest) String() string {
	return formatDeleteRecords(r.timeout, r.offsets)
}

// Encode converts r to its wire representation at the version of the request.
//
// Topics are sorted by name and partitions by index, encoding the same
// request always produces the same message. Negative partition indexes, which
// DecodeDeleteRecordsRequest refuses, fail with an error matching
// ErrMalformedMessage.
func (r *DeleteRecordsRequest) Encode() (*deleterecords.Request, error) {
	if err := protocol.DeleteRecords.CheckVersion(r.version); err != nil {
		return nil, err
	}

	groups := groupByTopic(r.offsets)
	topics := make([]deleterecords.RequestTopic, len(groups))

	for i, g := range groups {
		partitions := make([]deleterecords.RequestPartition, len(g.partitions))

		for j, p := range g.partitions {
			if p.partition < 0 {
				return nil, malformed(r.version, "negative partition index %d for topic %q", p.partition, g.topic)
			}
			partitions[j] = deleterecords.RequestPartition{
				PartitionIndex: p.partition,
				Offset:         p.value,
			}
		}

		topics[i] = deleterecords.RequestTopic{
			Name:       g.topic,
			Partitions: partitions,
		}
	}

	return &deleterecords.Request{
		Topics:    topics,
		TimeoutMs: r.TimeoutMs(),
	}, nil
}

// MarshalBinary returns the body of the DeleteRecords request encoded at the
// version of r, without the size prefix and request header.
func (r *DeleteRecordsRequest) MarshalBinary() ([]byte, error) {
	m, err := r.Encode()
	if err != nil {
		return nil, err
	}
	return protocol.Marshal(r.version, m)
}

// DecodeDeleteRecordsRequest converts a wire message received at the given
// version into a DeleteRecordsRequest.
//
// The function fails with an error matching ErrUnsupportedVersion if version
// is not defined for the DeleteRecords api, and with an error matching
// ErrMalformedMessage if the message lists a negative partition index or the
// same partition twice.
func DecodeDeleteRecordsRequest(m *deleterecords.Request, version int16) (*DeleteRecordsRequest, error) {
	if err := protocol.DeleteRecords.CheckVersion(version); err != nil {
		return nil, err
	}

	if m == nil {
		return nil, malformed(version, "missing request message")
	}

	offsets := make(map[TopicPartition]int64)

	for _, t := range m.Topics {
		for _, p := range t.Partitions {
			if p.PartitionIndex < 0 {
				return nil, malformed(version, "negative partition index %d for topic %q", p.PartitionIndex, t.Name)
			}

			tp := TopicPartition{Topic: t.Name, Partition: p.PartitionIndex}
			if _, dup := offsets[tp]; dup {
				return nil, malformed(version, "partition %s appears more than once", tp)
			}

			offsets[tp] = p.Offset
		}
	}

	return &DeleteRecordsRequest{
		version: version,
		timeout: fromMillis(m.TimeoutMs),
		offsets: offsets,
	}, nil
}

// ParseDeleteRecordsRequest decodes a request body produced by MarshalBinary
// at the given version. The whole input must be consumed.
func ParseDeleteRecordsRequest(b []byte, version int16) (*DeleteRecordsRequest, error) {
	m := &deleterecords.Request{}
	if err := protocol.Unmarshal(b, version, m); err != nil {
		return nil, err
	}
	return DecodeDeleteRecordsRequest(m, version)
}

// DeleteRecordsBuilder holds the content of DeleteRecords requests and builds
// them at a given api version.
type DeleteRecordsBuilder struct {
	timeout time.Duration
	offsets map[TopicPartition]int64
}

// NewDeleteRecordsBuilder constructs a builder for requests carrying the given
// timeout and partition offsets. The offsets map is copied, later changes
// made by the caller are not observed by the builder.
func NewDeleteRecordsBuilder(timeout time.Duration, offsets map[TopicPartition]int64) *DeleteRecordsBuilder {
	return &DeleteRecordsBuilder{
		timeout: timeout,
		offsets: copyOffsets(offsets),
	}
}

// Build returns a new request at the given version. Each call returns an
// independent value.
//
// The version is not validated here, requests built with a version that the
// api does not define fail when they are encoded or answered.
func (b *DeleteRecordsBuilder) Build(version int16) *DeleteRecordsRequest {
	return &DeleteRecordsRequest{
		version: version,
		timeout: b.timeout,
		offsets: copyOffsets(b.offsets),
	}
}

func (b *DeleteRecordsBuilder) Timeout() time.Duration { return b.timeout }

func (b *DeleteRecordsBuilder) Len() int { return len(b.offsets) }

func (b *DeleteRecordsBuilder) String() string {
	return formatDeleteRecords(b.timeout, b.offsets)
}

func formatDeleteRecords(timeout time.Duration, offsets map[TopicPartition]int64) string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "(type=DeleteRecordsRequest, timeout=%d, partitionOffsets=(", toMillis(timeout))

	for i, tp := range sortedPartitions(offsets) {
		if i != 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(s, "%s=%d", tp, offsets[tp])
	}

	s.WriteString("))")
	return s.String()
}

func copyOffsets(offsets map[TopicPartition]int64) map[TopicPartition]int64 {
	c := make(map[TopicPartition]int64, len(offsets))
	for tp, offset := range offsets {
		c[tp] = offset
	}
	return c
}

func malformed(version int16, msg string, args ...interface{}) error {
	return &protocol.MalformedError{
		ApiKey:  protocol.DeleteRecords,
		Version: version,
		Err:     protocol.Error(fmt.Sprintf(msg, args...)),
	}
}
