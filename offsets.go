package trim

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// highWatermarkKeyword may be used in place of an offset in offsets documents
// to delete all records of a partition.
const highWatermarkKeyword = "high-watermark"

type offsetsDocument struct {
	Timeout time.Duration                    `yaml:"timeout"`
	Topics  map[string]map[int32]offsetValue `yaml:"topics"`
}

type offsetValue int64

func (v *offsetValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: offset must be a number or %q", node.Line, highWatermarkKeyword)
	}
	if node.Value == highWatermarkKeyword {
		*v = offsetValue(HighWatermark)
		return nil
	}
	i, err := strconv.ParseInt(node.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid offset %q: must be a number or %q", node.Line, node.Value, highWatermarkKeyword)
	}
	*v = offsetValue(i)
	return nil
}

// ParseOffsets reads a YAML document describing the records to delete and
// returns a builder for the matching DeleteRecords requests:
//
//	timeout: 30s
//	topics:
//	  orders:
//	    0: 1200
//	    1: high-watermark
//
// Unknown fields and negative partition indexes are rejected.
func ParseOffsets(r io.Reader) (*DeleteRecordsBuilder, error) {
	doc := offsetsDocument{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parsing offsets: empty document")
		}
		return nil, fmt.Errorf("parsing offsets: %w", err)
	}

	offsets := make(map[TopicPartition]int64)

	for topic, partitions := range doc.Topics {
		if topic == "" {
			return nil, errors.New("parsing offsets: empty topic name")
		}
		for partition, offset := range partitions {
			if partition < 0 {
				return nil, fmt.Errorf("parsing offsets: negative partition index %d for topic %q", partition, topic)
			}
			offsets[TopicPartition{Topic: topic, Partition: partition}] = int64(offset)
		}
	}

	return &DeleteRecordsBuilder{
		timeout: doc.Timeout,
		offsets: offsets,
	}, nil
}
