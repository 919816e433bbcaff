// Package snappy implements the snappy codec, with optional xerial framing
// for compatibility with the Java implementations.
package snappy

import (
	"bytes"
	"io"

	xerial "github.com/eapache/go-xerial-snappy"
	"github.com/golang/snappy"
)

// Framing selects the layout of compressed payloads.
type Framing int

const (
	// Framed wraps snappy blocks in the xerial format used by the JVM
	// clients.
	Framed Framing = iota
	// Unframed writes a single raw snappy block.
	Unframed
)

// Codec compresses with snappy. Readers detect the framing of their input,
// Framing only applies to writers.
type Codec struct {
	Framing Framing
}

func (Codec) Code() int8 { return 2 }

func (Codec) Name() string { return "snappy" }

// NewReader decodes the whole input on the first call to Read, snappy blocks
// cannot be decoded incrementally.
func (Codec) NewReader(r io.Reader) io.ReadCloser {
	return &reader{input: r}
}

// NewWriter buffers the payload until Close.
func (c Codec) NewWriter(w io.Writer) io.WriteCloser {
	return &writer{output: w, framed: c.Framing == Framed}
}

type reader struct {
	input  io.Reader
	output *bytes.Reader
	err    error
}

func (r *reader) Read(b []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.output == nil {
		src, err := io.ReadAll(r.input)
		if err != nil {
			r.err = err
			return 0, err
		}
		dst, err := xerial.Decode(src)
		if err != nil {
			r.err = err
			return 0, err
		}
		r.output = bytes.NewReader(dst)
	}
	return r.output.Read(b)
}

func (r *reader) Close() error {
	r.input, r.output, r.err = nil, nil, io.ErrClosedPipe
	return nil
}

type writer struct {
	output io.Writer
	buffer bytes.Buffer
	framed bool
	closed bool
}

func (w *writer) Write(b []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buffer.Write(b)
}

func (w *writer) Close() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	w.closed = true

	var b []byte
	if w.framed {
		b = encodeFramed(w.buffer.Bytes())
	} else {
		b = snappy.Encode(nil, w.buffer.Bytes())
	}

	_, err := w.output.Write(b)
	return err
}
