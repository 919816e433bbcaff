// Package deleterecords declares the wire layout of the DeleteRecords api.
//
// See https://kafka.apache.org/protocol.html#The_Messages_DeleteRecords
package deleterecords

import "github.com/segmentio/kafka-trim/protocol"

func init() {
	protocol.Register(&Request{}, &Response{})
}

type Request struct {
	Topics    []RequestTopic `kafka:"min=v0,max=v0"`
	TimeoutMs int32          `kafka:"min=v0,max=v0"`
}

func (r *Request) ApiKey() protocol.ApiKey { return protocol.DeleteRecords }

type RequestTopic struct {
	Name       string             `kafka:"min=v0,max=v0"`
	Partitions []RequestPartition `kafka:"min=v0,max=v0"`
}

type RequestPartition struct {
	PartitionIndex int32 `kafka:"min=v0,max=v0"`
	Offset         int64 `kafka:"min=v0,max=v0"`
}

type Response struct {
	ThrottleTimeMs int32           `kafka:"min=v0,max=v0"`
	Topics         []ResponseTopic `kafka:"min=v0,max=v0"`
}

func (r *Response) ApiKey() protocol.ApiKey { return protocol.DeleteRecords }

type ResponseTopic struct {
	Name       string              `kafka:"min=v0,max=v0"`
	Partitions []ResponsePartition `kafka:"min=v0,max=v0"`
}

type ResponsePartition struct {
	PartitionIndex int32 `kafka:"min=v0,max=v0"`
	LowWatermark   int64 `kafka:"min=v0,max=v0"`
	ErrorCode      int16 `kafka:"min=v0,max=v0"`
}
