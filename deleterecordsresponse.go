package trim

import (
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/segmentio/kafka-trim/protocol"
	"github.com/segmentio/kafka-trim/protocol/deleterecords"
)

// InvalidLowWatermark is the low watermark reported for partitions whose
// records could not be deleted.
const InvalidLowWatermark int64 = -1

// PartitionResult is the outcome of deleting records from a single partition.
type PartitionResult struct {
	// The log start offset of the partition after the deletion.
	LowWatermark int64

	// Kafka error code, zero on success.
	ErrorCode int16
}

// Err returns the error matching the result's error code, or nil on success.
func (r PartitionResult) Err() error { return Error(r.ErrorCode) }

// DeleteRecordsResponse carries the per-partition results of a DeleteRecords
// request.
type DeleteRecordsResponse struct {
	version  int16
	throttle time.Duration
	results  map[TopicPartition]PartitionResult
}

// NewDeleteRecordsResponse constructs a response at the given version. The
// results map is copied and negative throttle durations are reported as zero.
func NewDeleteRecordsResponse(version int16, throttle time.Duration, results map[TopicPartition]PartitionResult) *DeleteRecordsResponse {
	c := make(map[TopicPartition]PartitionResult, len(results))
	for tp, r := range results {
		c[tp] = r
	}
	return &DeleteRecordsResponse{
		version:  version,
		throttle: max(throttle, 0),
		results:  c,
	}
}

func (r *DeleteRecordsResponse) Version() int16 { return r.version }

// Throttle returns how long the broker throttled the request.
func (r *DeleteRecordsResponse) Throttle() time.Duration { return r.throttle }

func (r *DeleteRecordsResponse) Len() int { return len(r.results) }

// Result returns the result reported for tp, and whether tp was part of the
// response.
func (r *DeleteRecordsResponse) Result(tp TopicPartition) (PartitionResult, bool) {
	res, ok := r.results[tp]
	return res, ok
}

// Results returns a copy of the per-partition results.
func (r *DeleteRecordsResponse) Results() map[TopicPartition]PartitionResult {
	c := make(map[TopicPartition]PartitionResult, len(r.results))
	for tp, res := range r.results {
		c[tp] = res
	}
	return c
}

// Errors returns the errors of partitions that reported a non-zero error
// code. The map is empty if all deletions succeeded.
func (r *DeleteRecordsResponse) Errors() map[TopicPartition]error {
	errs := make(map[TopicPartition]error)
	for tp, res := range r.results {
		if err := res.Err(); err != nil {
			errs[tp] = err
		}
	}
	return errs
}

// Partitions returns the partitions of the response, sorted by topic then by
// partition index.
func (r *DeleteRecordsResponse) Partitions() []TopicPartition {
	return sortedPartitions(r.results)
}

func (r *DeleteRecordsResponse) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "(type=DeleteRecordsResponse, throttleTimeMs=%d, partitions=(", toMillis(r.throttle))

	for i, tp := range r.Partitions() {
		if i != 0 {
			s.WriteString(", ")
		}
		res := r.results[tp]
		fmt.Fprintf(s, "%s=(lowWatermark=%d, errorCode=%d)", tp, res.LowWatermark, res.ErrorCode)
	}

	s.WriteString("))")
	return s.String()
}

// Encode converts r to its wire representation at the version of the
// response.
func (r *DeleteRecordsResponse) Encode() (*deleterecords.Response, error) {
	if err := protocol.DeleteRecords.CheckVersion(r.version); err != nil {
		return nil, err
	}

	groups := groupByTopic(r.results)
	topics := make([]deleterecords.ResponseTopic, len(groups))

	for i, g := range groups {
		partitions := make([]deleterecords.ResponsePartition, len(g.partitions))

		for j, p := range g.partitions {
			if p.partition < 0 {
				return nil, malformed(r.version, "negative partition index %d for topic %q", p.partition, g.topic)
			}
			partitions[j] = deleterecords.ResponsePartition{
				PartitionIndex: p.partition,
				LowWatermark:   p.value.LowWatermark,
				ErrorCode:      p.value.ErrorCode,
			}
		}

		topics[i] = deleterecords.ResponseTopic{
			Name:       g.topic,
			Partitions: partitions,
		}
	}

	return &deleterecords.Response{
		ThrottleTimeMs: toMillis(r.throttle),
		Topics:         topics,
	}, nil
}

// MarshalBinary returns the body of the DeleteRecords response encoded at the
// version of r, without the size prefix and response header.
func (r *DeleteRecordsResponse) MarshalBinary() ([]byte, error) {
	m, err := r.Encode()
	if err != nil {
		return nil, err
	}
	return protocol.Marshal(r.version, m)
}

// DecodeDeleteRecordsResponse converts a wire message received at the given
// version into a DeleteRecordsResponse. Errors follow the same rules as
// DecodeDeleteRecordsRequest.
func DecodeDeleteRecordsResponse(m *deleterecords.Response, version int16) (*DeleteRecordsResponse, error) {
	if err := protocol.DeleteRecords.CheckVersion(version); err != nil {
		return nil, err
	}

	if m == nil {
		return nil, malformed(version, "missing response message")
	}

	results := make(map[TopicPartition]PartitionResult)

	for _, t := range m.Topics {
		for _, p := range t.Partitions {
			if p.PartitionIndex < 0 {
				return nil, malformed(version, "negative partition index %d for topic %q", p.PartitionIndex, t.Name)
			}

			tp := TopicPartition{Topic: t.Name, Partition: p.PartitionIndex}
			if _, dup := results[tp]; dup {
				return nil, malformed(version, "partition %s appears more than once", tp)
			}

			results[tp] = PartitionResult{
				LowWatermark: p.LowWatermark,
				ErrorCode:    p.ErrorCode,
			}
		}
	}

	return &DeleteRecordsResponse{
		version:  version,
		throttle: max(fromMillis(m.ThrottleTimeMs), 0),
		results:  results,
	}, nil
}

// ParseDeleteRecordsResponse decodes a response body produced by
// MarshalBinary at the given version. The whole input must be consumed.
func ParseDeleteRecordsResponse(b []byte, version int16) (*DeleteRecordsResponse, error) {
	m := &deleterecords.Response{}
	if err := protocol.Unmarshal(b, version, m); err != nil {
		return nil, err
	}
	return DecodeDeleteRecordsResponse(m, version)
}

// ErrorResponse builds the response sent back when r cannot be served. Every
// partition of the request is reported with InvalidLowWatermark and the error
// code that cause maps to (see ErrorCode).
//
// The response has the version of the request. If that version is not defined
// for the DeleteRecords api, the method returns an error matching
// ErrUnsupportedVersion and no response.
func (r *DeleteRecordsRequest) ErrorResponse(throttle time.Duration, cause error) (*DeleteRecordsResponse, error) {
	if err := protocol.DeleteRecords.CheckVersion(r.version); err != nil {
		return nil, err
	}

	code := ErrorCode(cause)
	if code == 0 {
		code = kerr.UnknownServerError.Code
	}
	results := make(map[TopicPartition]PartitionResult, len(r.offsets))

	for tp := range r.offsets {
		results[tp] = PartitionResult{
			LowWatermark: InvalidLowWatermark,
			ErrorCode:    code,
		}
	}

	return &DeleteRecordsResponse{
		version:  r.version,
		throttle: max(throttle, 0),
		results:  results,
	}, nil
}
