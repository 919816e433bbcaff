package saslhandshake

import "github.com/segmentio/kafka-trim/protocol"

func init() {
	protocol.Register(&Request{}, &Response{})
}

// Request and Response have the same layout in v0 and v1, v1 only changes the
// broker's expectations about how authentication bytes are exchanged
// (wrapped in SaslAuthenticate requests instead of raw frames).
type Request struct {
	Mechanism string `kafka:"min=v0,max=v1"`
}

func (r *Request) ApiKey() protocol.ApiKey { return protocol.SaslHandshake }

type Response struct {
	ErrorCode  int16    `kafka:"min=v0,max=v1"`
	Mechanisms []string `kafka:"min=v0,max=v1"`
}

func (r *Response) ApiKey() protocol.ApiKey { return protocol.SaslHandshake }
