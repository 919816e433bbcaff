// Package lz4 compresses plan files with github.com/pierrec/lz4 frames.
package lz4

import (
	"io"

	"github.com/pierrec/lz4"
)

// Codec compresses with lz4. A zero BlockMaxSize keeps the library default of
// 4MB blocks.
type Codec struct {
	BlockMaxSize int
}

func (Codec) Code() int8 { return 3 }

func (Codec) Name() string { return "lz4" }

func (Codec) NewReader(r io.Reader) io.ReadCloser {
	return io.NopCloser(lz4.NewReader(r))
}

func (c Codec) NewWriter(w io.Writer) io.WriteCloser {
	z := lz4.NewWriter(w)
	if c.BlockMaxSize != 0 {
		z.Header.BlockMaxSize = c.BlockMaxSize
	}
	return z
}
