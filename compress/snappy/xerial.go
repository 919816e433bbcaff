package snappy

import (
	"encoding/binary"

	"github.com/golang/snappy"
)

const (
	// Chunks are compressed independently, decoders never need to hold more
	// than one of them in memory.
	xerialChunkSize = 32 * 1024

	xerialVersion    = 1
	xerialCompatible = 1
)

var xerialMagic = [8]byte{0x82, 'S', 'N', 'A', 'P', 'P', 'Y', 0}

// encodeFramed compresses src into the xerial framing: a 16 bytes header
// followed by length-prefixed snappy blocks.
func encodeFramed(src []byte) []byte {
	dst := make([]byte, 0, 16+len(src)/2)
	dst = append(dst, xerialMagic[:]...)
	dst = binary.BigEndian.AppendUint32(dst, xerialVersion)
	dst = binary.BigEndian.AppendUint32(dst, xerialCompatible)

	for len(src) != 0 {
		n := len(src)
		if n > xerialChunkSize {
			n = xerialChunkSize
		}
		block := snappy.Encode(nil, src[:n])
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(block)))
		dst = append(dst, block...)
		src = src[n:]
	}

	return dst
}
