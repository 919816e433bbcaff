// Package compress maps the codec codes stored in plan file headers to their
// implementations. Codes are the ones kafka assigns to record batch
// compression.
package compress

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-trim/compress/gzip"
	"github.com/segmentio/kafka-trim/compress/lz4"
	"github.com/segmentio/kafka-trim/compress/snappy"
	"github.com/segmentio/kafka-trim/compress/zstd"
)

type Compression int8

const (
	None   Compression = 0
	Gzip   Compression = 1
	Snappy Compression = 2
	Lz4    Compression = 3
	Zstd   Compression = 4
)

// Codec streams payloads through a compression algorithm. Implementations
// are safe for concurrent use, readers and writers are not.
type Codec interface {
	Code() int8
	Name() string
	NewReader(r io.Reader) io.ReadCloser
	NewWriter(w io.Writer) io.WriteCloser
}

var codecs = [...]Codec{
	Gzip:   gzip.Codec{},
	Snappy: snappy.Codec{Framing: snappy.Framed},
	Lz4:    lz4.Codec{},
	Zstd:   zstd.Codec{},
}

// Supported returns the codes which have a codec, in ascending order.
func Supported() []Compression {
	return []Compression{Gzip, Snappy, Lz4, Zstd}
}

// Codec returns nil for None and for unknown codes.
func (c Compression) Codec() Codec {
	if c <= None || int(c) >= len(codecs) {
		return nil
	}
	return codecs[c]
}

func (c Compression) String() string {
	switch codec := c.Codec(); {
	case codec != nil:
		return codec.Name()
	case c == None:
		return "none"
	default:
		return "compression(" + strconv.Itoa(int(c)) + ")"
	}
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names returned by String in any case, an empty
// name is None.
func (c *Compression) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	if name == "" || name == "none" {
		*c = None
		return nil
	}
	for _, s := range Supported() {
		if s.Codec().Name() == name {
			*c = s
			return nil
		}
	}
	return fmt.Errorf("unknown compression codec: %q", b)
}
