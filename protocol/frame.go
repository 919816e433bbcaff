package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds the size prefix accepted by ReadRequest and
// ReadResponse, larger frames are rejected before any allocation.
const MaxFrameSize = 100 * 1024 * 1024

// ReadRequest reads one size-prefixed request from r. The whole frame is
// consumed even when the request is rejected, so the next call starts on the
// following request.
func ReadRequest(r *bufio.Reader) (apiVersion int16, correlationID int32, clientID string, msg Message, err error) {
	frame, err := readFrame(r)
	if err != nil {
		return 0, 0, "", nil, err
	}

	d := &reader{b: frame}
	apiKey := ApiKey(d.int16())
	apiVersion = d.int16()
	correlationID = d.int32()
	clientID = d.string(true)
	if d.err != nil {
		return apiVersion, correlationID, clientID, nil, shapeError(apiKey, apiVersion, d.err)
	}

	a, err := apiKey.lookup(apiVersion)
	if err != nil {
		return apiVersion, correlationID, clientID, nil, err
	}

	req := a.request(apiVersion)
	m := req.new()
	req.decode(d, m)
	d.done()
	if d.err != nil {
		return apiVersion, correlationID, clientID, nil, shapeError(apiKey, apiVersion, d.err)
	}
	return apiVersion, correlationID, clientID, m, nil
}

// WriteRequest writes msg to w in a single call, prefixed with its size and
// the request header. Nothing is written when msg cannot be encoded.
func WriteRequest(w io.Writer, apiVersion int16, correlationID int32, clientID string, msg Message) error {
	apiKey := msg.ApiKey()
	s, err := schemaFor(msg, apiVersion)
	if err != nil {
		return err
	}

	e := newFrame(2 + 2 + 4 + 2 + len(clientID) + s.size(msg))
	e.int16(int16(apiKey))
	e.int16(apiVersion)
	e.int32(correlationID)
	e.string(clientID, true)
	s.encode(e, msg)

	frame, err := finishFrame(e)
	if err != nil {
		return shapeError(apiKey, apiVersion, err)
	}
	_, err = w.Write(frame)
	return err
}

// ReadResponse reads the response to a request of apiKey sent with
// apiVersion.
func ReadResponse(r *bufio.Reader, apiKey ApiKey, apiVersion int16) (correlationID int32, msg Message, err error) {
	a, err := apiKey.lookup(apiVersion)
	if err != nil {
		return 0, nil, err
	}

	if h, _ := r.Peek(4); looksLikeTLSAlert(h) {
		return 0, nil, fmt.Errorf("%w: broker appears to be expecting TLS", io.ErrUnexpectedEOF)
	}

	frame, err := readFrame(r)
	if err != nil {
		return 0, nil, err
	}

	d := &reader{b: frame}
	correlationID = d.int32()
	res := a.response(apiVersion)
	m := res.new()
	res.decode(d, m)
	d.done()
	if d.err != nil {
		return correlationID, nil, shapeError(apiKey, apiVersion, d.err)
	}
	return correlationID, m, nil
}

// WriteResponse writes msg to w in a single call, prefixed with its size and
// the correlation id. Nothing is written when msg cannot be encoded.
func WriteResponse(w io.Writer, apiVersion int16, correlationID int32, msg Message) error {
	s, err := schemaFor(msg, apiVersion)
	if err != nil {
		return err
	}

	e := newFrame(4 + s.size(msg))
	e.int32(correlationID)
	s.encode(e, msg)

	frame, err := finishFrame(e)
	if err != nil {
		return shapeError(msg.ApiKey(), apiVersion, err)
	}
	_, err = w.Write(frame)
	return err
}

func schemaFor(msg Message, version int16) (*schema, error) {
	a, err := msg.ApiKey().lookup(version)
	if err != nil {
		return nil, err
	}
	return a.schemaOf(msg, version)
}

// newFrame returns a writer with room for the size prefix and n bytes.
func newFrame(n int) *writer {
	return &writer{b: make([]byte, 4, 4+n)}
}

// finishFrame writes the size prefix. Frames which the reading side would
// refuse are reported as errors.
func finishFrame(w *writer) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	size := len(w.b) - 4
	if size > MaxFrameSize {
		return nil, errorf("frame size of %d bytes exceeds the %d bytes limit", size, MaxFrameSize)
	}
	binary.BigEndian.PutUint32(w.b[:4], uint32(size))
	return w.b, nil
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var h [4]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}
	switch size := int32(binary.BigEndian.Uint32(h[:])); {
	case size < 0:
		return nil, errorf("invalid frame size: %d", size)
	case size > MaxFrameSize:
		return nil, errorf("frame size of %d bytes exceeds the %d bytes limit", size, MaxFrameSize)
	default:
		frame := make([]byte, size)
		if _, err := io.ReadFull(r, frame); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return frame, nil
	}
}

const tlsAlertByte byte = 0x15

// looksLikeTLSAlert reports whether h, the first bytes of a response, is the
// header of the TLS alert record a TLS listener sends back to a plaintext
// client.
func looksLikeTLSAlert(h []byte) bool {
	if len(h) < 3 || h[0] != tlsAlertByte {
		return false
	}
	version := int(h[1])<<8 | int(h[2])
	return version >= 0x0300 && version <= 0x0304
}
