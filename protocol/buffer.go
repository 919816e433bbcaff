package protocol

import (
	"encoding/binary"
	"math"
)

// writer appends big-endian primitives to a byte slice. The first error
// sticks, like on reader.
type writer struct {
	b   []byte
	err error
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) int8(i int8) { w.b = append(w.b, byte(i)) }

func (w *writer) int16(i int16) { w.b = binary.BigEndian.AppendUint16(w.b, uint16(i)) }

func (w *writer) int32(i int32) { w.b = binary.BigEndian.AppendUint32(w.b, uint32(i)) }

func (w *writer) int64(i int64) { w.b = binary.BigEndian.AppendUint64(w.b, uint64(i)) }

// string writes s with an int16 length prefix, an empty nullable string is
// written as null.
func (w *writer) string(s string, nullable bool) {
	if nullable && s == "" {
		w.int16(-1)
		return
	}
	if len(s) > math.MaxInt16 {
		w.fail(errorf("string of %d bytes exceeds the int16 length prefix", len(s)))
		return
	}
	w.int16(int16(len(s)))
	w.b = append(w.b, s...)
}

func (w *writer) bytes(b []byte, nullable bool) {
	if nullable && b == nil {
		w.int32(-1)
		return
	}
	if len(b) > math.MaxInt32 {
		w.fail(errorf("%d bytes exceed the int32 length prefix", len(b)))
		return
	}
	w.int32(int32(len(b)))
	w.b = append(w.b, b...)
}

// reader consumes big-endian primitives from a byte slice. The first error
// sticks, later reads return zero values.
type reader struct {
	b   []byte
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
		r.b = nil
	}
}

func (r *reader) remaining() int { return len(r.b) }

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.b) {
		r.fail(ErrTruncated)
		return nil
	}
	p := r.b[:n:n]
	r.b = r.b[n:]
	return p
}

func (r *reader) int8() int8 {
	if p := r.next(1); p != nil {
		return int8(p[0])
	}
	return 0
}

func (r *reader) int16() int16 {
	if p := r.next(2); p != nil {
		return int16(binary.BigEndian.Uint16(p))
	}
	return 0
}

func (r *reader) int32() int32 {
	if p := r.next(4); p != nil {
		return int32(binary.BigEndian.Uint32(p))
	}
	return 0
}

func (r *reader) int64() int64 {
	if p := r.next(8); p != nil {
		return int64(binary.BigEndian.Uint64(p))
	}
	return 0
}

// length reads an int16 or int32 length prefix. The second return value is
// false for a null value, which is only accepted when nullable is set.
func (r *reader) length(wide, nullable bool) (int, bool) {
	var n int
	if wide {
		n = int(r.int32())
	} else {
		n = int(r.int16())
	}
	switch {
	case r.err != nil:
		return 0, false
	case n == -1 && nullable:
		return 0, false
	case n < 0:
		r.fail(ErrNegativeLength)
		return 0, false
	}
	return n, true
}

func (r *reader) string(nullable bool) string {
	n, ok := r.length(false, nullable)
	if !ok {
		return ""
	}
	return string(r.next(n))
}

func (r *reader) bytes(nullable bool) []byte {
	n, ok := r.length(true, nullable)
	if !ok {
		return nil
	}
	p := r.next(n)
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	copy(b, p)
	return b
}

// done reports leftover input as ErrTrailingBytes.
func (r *reader) done() {
	if r.err == nil && len(r.b) != 0 {
		r.fail(ErrTrailingBytes)
	}
}
