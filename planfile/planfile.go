// Package planfile persists DeleteRecords requests so a trim can be reviewed
// before it is applied.
//
// A plan file is made of a fixed header followed by the request body encoded
// as a DeleteRecords message of the recorded version:
//
//	magic   [4]byte  "KTRM"
//	format  int8     1
//	codec   int8     compression code of the body, 0 when uncompressed
//	version int16    DeleteRecords api version of the body
//	body    []byte   to the end of the file
package planfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	trim "github.com/segmentio/kafka-trim"
	"github.com/segmentio/kafka-trim/compress"
	"github.com/segmentio/kafka-trim/protocol"
)

const (
	// Format is the version of the plan file layout written by this package.
	Format int8 = 1

	headerSize = 8
)

var magic = [4]byte{'K', 'T', 'R', 'M'}

// Error is a string type implementing the error interface, used to declare
// the errors returned when reading plan files.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrBadMagic      = Error("not a kafka-trim plan file")
	ErrUnknownFormat = Error("unknown plan file format")
	ErrUnknownCodec  = Error("unknown plan file compression codec")
	ErrBodyTooLarge  = Error("plan file body exceeds the maximum frame size")
)

// maxBodySize bounds the decoded body accepted by Read, a request larger than
// a frame could not be sent to a broker anyway.
var maxBodySize int64 = protocol.MaxFrameSize

// Header is the metadata stored in front of the request body.
type Header struct {
	Format      int8
	Compression compress.Compression
	Version     int16
}

// Write writes req to w, compressing the body with codec.
func Write(w io.Writer, req *trim.DeleteRecordsRequest, codec compress.Compression) error {
	if codec != compress.None && codec.Codec() == nil {
		return fmt.Errorf("%w: %d", ErrUnknownCodec, int8(codec))
	}

	body, err := req.MarshalBinary()
	if err != nil {
		return err
	}

	var header [headerSize]byte
	copy(header[:4], magic[:])
	header[4] = byte(Format)
	header[5] = byte(codec)
	binary.BigEndian.PutUint16(header[6:], uint16(req.Version()))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if codec == compress.None {
		_, err = w.Write(body)
		return err
	}

	z := codec.Codec().NewWriter(w)
	if _, err := z.Write(body); err != nil {
		z.Close()
		return err
	}
	return z.Close()
}

// Read reads a request written by Write from r. Bodies which decode to more
// than protocol.MaxFrameSize bytes are rejected with ErrBodyTooLarge.
func Read(r io.Reader) (*trim.DeleteRecordsRequest, Header, error) {
	var b [headerSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = ErrBadMagic
		}
		return nil, Header{}, err
	}

	if !bytes.Equal(b[:4], magic[:]) {
		return nil, Header{}, ErrBadMagic
	}

	h := Header{
		Format:      int8(b[4]),
		Compression: compress.Compression(int8(b[5])),
		Version:     int16(binary.BigEndian.Uint16(b[6:])),
	}

	if h.Format != Format {
		return nil, h, fmt.Errorf("%w: %d", ErrUnknownFormat, h.Format)
	}

	body := r
	if h.Compression != compress.None {
		codec := h.Compression.Codec()
		if codec == nil {
			return nil, h, fmt.Errorf("%w: %d", ErrUnknownCodec, int8(h.Compression))
		}
		z := codec.NewReader(r)
		defer z.Close()
		body = z
	}

	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, h, fmt.Errorf("reading %s plan body: %w", h.Compression, err)
	}
	if int64(len(data)) > maxBodySize {
		return nil, h, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, maxBodySize)
	}

	req, err := trim.ParseDeleteRecordsRequest(data, h.Version)
	if err != nil {
		return nil, h, err
	}
	return req, h, nil
}
