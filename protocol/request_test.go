package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
)

func testRequestRoundTrip(t *testing.T, version int16, msg Message) {
	t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
		b := &bytes.Buffer{}

		if err := WriteRequest(b, version, 1234, "me", msg); err != nil {
			t.Fatal(err)
		}

		apiVersion, correlationID, clientID, req, err := ReadRequest(bufio.NewReader(b))
		if err != nil {
			t.Fatal(err)
		}
		if apiVersion != version {
			t.Errorf("api version mismatch: %d != %d", apiVersion, version)
		}
		if correlationID != 1234 {
			t.Errorf("correlation id mismatch: %d != %d", correlationID, 1234)
		}
		if clientID != "me" {
			t.Errorf("client id mismatch: %q != %q", clientID, "me")
		}
		if req.ApiKey() != msg.ApiKey() {
			t.Errorf("api key mismatch: %s != %s", req.ApiKey(), msg.ApiKey())
		}
		if b.Len() != 0 {
			t.Errorf("%d bytes left unread", b.Len())
		}
	})
}

func TestRequestRoundTrip(t *testing.T) {
	msg := &testRequest{
		Name:  "name",
		Items: []testSubType{{ID: 1, Value: 2}},
	}
	for _, version := range []int16{0, 1, 2} {
		testRequestRoundTrip(t, version, msg)
	}
}

func TestReadRequestUnsupportedVersion(t *testing.T) {
	b := &bytes.Buffer{}

	if err := WriteRequest(b, 2, 1, "me", &testRequest{Name: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := WriteRequest(b, 0, 2, "me", &testRequest{Name: "second"}); err != nil {
		t.Fatal(err)
	}

	// Rewrite the api version of the first request to v9.
	p := b.Bytes()
	p[6], p[7] = 0, 9

	r := bufio.NewReader(b)

	_, _, _, msg, err := ReadRequest(r)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if msg != nil {
		t.Errorf("message returned with an error: %+v", msg)
	}

	// The body of the rejected request must have been discarded.
	_, correlationID, _, msg, err := ReadRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if correlationID != 2 || msg.(*testRequest).Name != "second" {
		t.Errorf("unexpected second request: %d %+v", correlationID, msg)
	}
}

func TestWriteRequestUnsupportedVersion(t *testing.T) {
	b := &bytes.Buffer{}
	err := WriteRequest(b, 7, 1, "me", &testRequest{})
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("%d bytes written with an error", b.Len())
	}
}

func TestReadRequestFrameTooLarge(t *testing.T) {
	b := bytes.NewBuffer([]byte{0x7f, 0xff, 0xff, 0xff})
	if _, _, _, _, err := ReadRequest(bufio.NewReader(b)); err == nil {
		t.Fatal("no error for a frame larger than the limit")
	}
}

func TestReadRequestShortFrame(t *testing.T) {
	b := bytes.NewBuffer([]byte{0, 0, 0, 10, 0, 5})
	_, _, _, _, err := ReadRequest(bufio.NewReader(b))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestConnRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		defer server.Close()
		r := bufio.NewReader(server)
		for {
			version, correlationID, _, msg, err := ReadRequest(r)
			if err != nil {
				return
			}
			res := &testResponse{ErrorCode: int16(version), Values: []int64{int64(len(msg.(*testRequest).Name))}}
			if err := WriteResponse(server, version, correlationID, res); err != nil {
				return
			}
		}
	}()

	c := NewConn(client, "test")
	c.SetVersions(map[ApiKey]int16{StopReplica: 2})

	for i := 0; i < 3; i++ {
		res, err := c.RoundTrip(&testRequest{Name: "abc"})
		if err != nil {
			t.Fatal(err)
		}
		r := res.(*testResponse)
		if r.ErrorCode != 2 || len(r.Values) != 1 || r.Values[0] != 3 {
			t.Errorf("unexpected response: %+v", r)
		}
	}
}

func BenchmarkRequest(b *testing.B) {
	msg := &testRequest{
		Name:  "name",
		Items: []testSubType{{ID: 1, Value: 2}, {ID: 3, Value: 4}},
	}

	buffer := &bytes.Buffer{}
	for i := 0; i < b.N; i++ {
		if err := WriteRequest(buffer, 2, 1234, "client", msg); err != nil {
			b.Fatal(err)
		}
		buffer.Reset()
	}
}
