// Package gzip compresses plan files with github.com/klauspost/compress/gzip.
package gzip

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Codec compresses with gzip at Level, zero selects gzip.DefaultCompression.
type Codec struct {
	Level int
}

func (Codec) Code() int8 { return 1 }

func (Codec) Name() string { return "gzip" }

// NewReader parses the gzip header of r right away, a malformed header is
// reported by the first call to Read.
func (Codec) NewReader(r io.Reader) io.ReadCloser {
	z, err := gzip.NewReader(r)
	if err != nil {
		return broken{err}
	}
	return z
}

func (c Codec) NewWriter(w io.Writer) io.WriteCloser {
	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	z, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return broken{err}
	}
	return z
}

type broken struct{ err error }

func (b broken) Read([]byte) (int, error) { return 0, b.err }

func (b broken) Write([]byte) (int, error) { return 0, b.err }

func (b broken) Close() error { return nil }
