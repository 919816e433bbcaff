package trim

import (
	"sort"
	"strconv"
)

// TopicPartition identifies a single partition of a topic.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// Less orders topic partitions by topic name, then by partition index.
func (tp TopicPartition) Less(other TopicPartition) bool {
	if tp.Topic != other.Topic {
		return tp.Topic < other.Topic
	}
	return tp.Partition < other.Partition
}

func (tp TopicPartition) String() string {
	return tp.Topic + "-" + strconv.Itoa(int(tp.Partition))
}

type partitionEntry[V any] struct {
	partition int32
	value     V
}

type topicGroup[V any] struct {
	topic      string
	partitions []partitionEntry[V]
}

// groupByTopic turns a flat map keyed by topic partition into the nested
// layout used on the wire. Topics are sorted by name and partitions by index,
// so the same input always produces the same output.
func groupByTopic[V any](m map[TopicPartition]V) []topicGroup[V] {
	keys := sortedPartitions(m)
	groups := make([]topicGroup[V], 0, len(keys))

	for _, tp := range keys {
		if n := len(groups); n == 0 || groups[n-1].topic != tp.Topic {
			groups = append(groups, topicGroup[V]{topic: tp.Topic})
		}
		g := &groups[len(groups)-1]
		g.partitions = append(g.partitions, partitionEntry[V]{
			partition: tp.Partition,
			value:     m[tp],
		})
	}

	return groups
}

func sortedPartitions[V any](m map[TopicPartition]V) []TopicPartition {
	keys := make([]TopicPartition, 0, len(m))
	for tp := range m {
		keys = append(keys, tp)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
