// Package trimtest provides an in-memory implementation of trim.RecordDeleter
// for tests of programs that send or serve DeleteRecords requests.
package trimtest

import (
	"context"
	"sync"

	"github.com/twmb/franz-go/pkg/kerr"

	trim "github.com/segmentio/kafka-trim"
)

// Log is an in-memory set of partitions, each tracking the offset of its first
// retained record (the log start offset) and its high watermark.
//
// Log values are safe to use concurrently from multiple goroutines.
type Log struct {
	mutex      sync.Mutex
	partitions map[trim.TopicPartition]*partition
	err        error
}

type partition struct {
	logStart      int64
	highWatermark int64
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{partitions: make(map[trim.TopicPartition]*partition)}
}

// Append adds n records to tp, creating the partition if it did not exist,
// and returns the new high watermark.
func (l *Log) Append(tp trim.TopicPartition, n int64) int64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	p := l.partitions[tp]
	if p == nil {
		p = &partition{}
		l.partitions[tp] = p
	}
	p.highWatermark += n
	return p.highWatermark
}

// LogStartOffset returns the offset of the first record retained by tp.
func (l *Log) LogStartOffset(tp trim.TopicPartition) (int64, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if p := l.partitions[tp]; p != nil {
		return p.logStart, true
	}
	return 0, false
}

// HighWatermark returns the offset that the next record appended to tp will
// have.
func (l *Log) HighWatermark(tp trim.TopicPartition) (int64, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if p := l.partitions[tp]; p != nil {
		return p.highWatermark, true
	}
	return 0, false
}

// Fail makes the following calls to DeleteRecords return err, until Fail is
// called again with nil.
func (l *Log) Fail(err error) {
	l.mutex.Lock()
	l.err = err
	l.mutex.Unlock()
}

// DeleteRecords satisfies trim.RecordDeleter.
//
// Records before the requested offset are deleted, trim.HighWatermark
// deletes all records. Deleting never moves the log start offset backwards.
// Unknown partitions are reported with UNKNOWN_TOPIC_OR_PARTITION and offsets
// beyond the high watermark with OFFSET_OUT_OF_RANGE.
func (l *Log) DeleteRecords(ctx context.Context, req *trim.DeleteRecordsRequest) (map[trim.TopicPartition]trim.PartitionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.err != nil {
		return nil, l.err
	}

	results := make(map[trim.TopicPartition]trim.PartitionResult, req.Len())

	for tp, offset := range req.Offsets() {
		results[tp] = l.deleteRecords(tp, offset)
	}

	return results, nil
}

func (l *Log) deleteRecords(tp trim.TopicPartition, offset int64) trim.PartitionResult {
	p := l.partitions[tp]
	if p == nil {
		return failed(kerr.UnknownTopicOrPartition)
	}

	if offset == trim.HighWatermark {
		offset = p.highWatermark
	}

	if offset < 0 || offset > p.highWatermark {
		return failed(kerr.OffsetOutOfRange)
	}

	if offset > p.logStart {
		p.logStart = offset
	}

	return trim.PartitionResult{LowWatermark: p.logStart}
}

func failed(err *kerr.Error) trim.PartitionResult {
	return trim.PartitionResult{
		LowWatermark: trim.InvalidLowWatermark,
		ErrorCode:    err.Code,
	}
}
