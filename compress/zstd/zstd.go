// Package zstd compresses plan files with github.com/klauspost/compress/zstd.
package zstd

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// Codec compresses with Zstandard. Level follows the zstd command line scale,
// zero selects 3.
type Codec struct {
	Level int
}

func (Codec) Code() int8 { return 4 }

func (Codec) Name() string { return "zstd" }

func (Codec) NewReader(r io.Reader) io.ReadCloser {
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return broken{err}
	}
	return decoder{d}
}

func (c Codec) NewWriter(w io.Writer) io.WriteCloser {
	level := c.Level
	if level == 0 {
		level = 3
	}
	e, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return broken{err}
	}
	return e
}

// decoder releases the goroutines of the zstd decoder on Close.
type decoder struct{ *zstd.Decoder }

func (d decoder) Close() error {
	d.Decoder.Close()
	return nil
}

type broken struct{ err error }

func (b broken) Read([]byte) (int, error) { return 0, b.err }

func (b broken) Write([]byte) (int, error) { return 0, b.err }

func (b broken) Close() error { return nil }
