// Package prototest checks that message types of the protocol package survive
// a trip through their wire representation.
package prototest

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmentio/kafka-trim/protocol"
)

const (
	correlationID = 1234
	clientID      = "prototest"
)

// DeepEqual compares two messages on their exported fields. Nil and empty
// slices are equal, non-nullable arrays and bytes decode as empty slices.
func DeepEqual(m1, m2 protocol.Message) bool {
	return reflect.DeepEqual(normalize(m1), normalize(m2))
}

func normalize(m protocol.Message) interface{} {
	if m == nil {
		return nil
	}
	return normalizeValue(reflect.ValueOf(m)).Interface()
}

// normalizeValue returns a copy of v with unexported fields cleared and empty
// slices set to nil.
func normalizeValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		p := reflect.New(v.Type().Elem())
		p.Elem().Set(normalizeValue(v.Elem()))
		return p
	case reflect.Struct:
		s := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				s.Field(i).Set(normalizeValue(v.Field(i)))
			}
		}
		return s
	case reflect.Slice:
		if v.Len() == 0 {
			return reflect.Zero(v.Type())
		}
		s := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			s.Index(i).Set(normalizeValue(v.Index(i)))
		}
		return s
	default:
		return v
	}
}

// TestRequest writes msg as a request of the given version, reads it back and
// compares the result with msg.
func TestRequest(t *testing.T, version int16, msg protocol.Message) {
	t.Helper()

	t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
		b := &bytes.Buffer{}
		require.NoError(t, protocol.WriteRequest(b, version, correlationID, clientID, msg))
		t.Logf("\n%s", hex.Dump(b.Bytes()))

		apiVersion, id, client, req, err := protocol.ReadRequest(bufio.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, version, apiVersion, "api version")
		assert.Equal(t, int32(correlationID), id, "correlation id")
		assert.Equal(t, clientID, client, "client id")
		assert.Equal(t, normalize(msg), normalize(req))
		assert.Zero(t, b.Len(), "bytes left unread")
	})
}

// TestResponse is the TestRequest counterpart for response types.
func TestResponse(t *testing.T, version int16, msg protocol.Message) {
	t.Helper()

	t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
		b := &bytes.Buffer{}
		require.NoError(t, protocol.WriteResponse(b, version, correlationID, msg))
		t.Logf("\n%s", hex.Dump(b.Bytes()))

		id, res, err := protocol.ReadResponse(bufio.NewReader(b), msg.ApiKey(), version)
		require.NoError(t, err)
		assert.Equal(t, int32(correlationID), id, "correlation id")
		assert.Equal(t, normalize(msg), normalize(res))
		assert.Zero(t, b.Len(), "bytes left unread")
	})
}

// TestMessage marshals msg twice, expecting identical bytes, then unmarshals
// them into zero and compares it with msg.
func TestMessage(t *testing.T, version int16, msg, zero protocol.Message) {
	t.Helper()

	t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
		b1, err := protocol.Marshal(version, msg)
		require.NoError(t, err)
		b2, err := protocol.Marshal(version, msg)
		require.NoError(t, err)
		assert.Equal(t, b1, b2, "encoding is not stable")

		require.NoError(t, protocol.Unmarshal(b1, version, zero))
		assert.Equal(t, normalize(msg), normalize(zero))
	})
}

// BenchmarkRequest measures WriteRequest and ReadRequest on msg.
func BenchmarkRequest(b *testing.B, version int16, msg protocol.Message) {
	b.Run(fmt.Sprintf("v%d", version), func(b *testing.B) {
		buf := &bytes.Buffer{}
		if err := protocol.WriteRequest(buf, version, correlationID, clientID, msg); err != nil {
			b.Fatal(err)
		}
		frame := append([]byte(nil), buf.Bytes()...)

		b.Run("write", func(b *testing.B) {
			b.SetBytes(int64(len(frame)))
			for i := 0; i < b.N; i++ {
				buf.Reset()
				if err := protocol.WriteRequest(buf, version, correlationID, clientID, msg); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("read", func(b *testing.B) {
			src := bytes.NewReader(frame)
			r := bufio.NewReader(src)
			b.SetBytes(int64(len(frame)))
			for i := 0; i < b.N; i++ {
				src.Reset(frame)
				r.Reset(src)
				if _, _, _, _, err := protocol.ReadRequest(r); err != nil {
					b.Fatal(err)
				}
			}
		})
	})
}
