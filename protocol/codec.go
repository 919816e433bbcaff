package protocol

import (
	"fmt"
	"math"
	"reflect"
)

// codec reads and writes one Go type with the layout of a single version.
type codec interface {
	size(v reflect.Value) int
	// minSize is the smallest encoding of the type, used to reject array
	// lengths the remaining input cannot hold.
	minSize() int
	encode(w *writer, v reflect.Value)
	decode(r *reader, v reflect.Value)
}

// schema is the compiled layout of a message type at one version.
type schema struct {
	typ     reflect.Type
	version int16
	root    *structCodec
}

func compileSchema(t reflect.Type, version int16) *schema {
	return &schema{typ: t, version: version, root: compileStruct(t, version)}
}

func (s *schema) new() Message {
	return reflect.New(s.typ).Interface().(Message)
}

func (s *schema) size(msg Message) int {
	return s.root.size(reflect.ValueOf(msg).Elem())
}

func (s *schema) encode(w *writer, msg Message) {
	s.root.encode(w, reflect.ValueOf(msg).Elem())
}

func (s *schema) decode(r *reader, msg Message) {
	s.root.decode(r, reflect.ValueOf(msg).Elem())
}

func compile(t reflect.Type, version int16, tag versionRange) codec {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8:
		return intCodec{kind: t.Kind(), width: 1}
	case reflect.Int16:
		return intCodec{kind: t.Kind(), width: 2}
	case reflect.Int32:
		return intCodec{kind: t.Kind(), width: 4}
	case reflect.Int64:
		return intCodec{kind: t.Kind(), width: 8}
	case reflect.String:
		return stringCodec{nullable: tag.nullable}
	case reflect.Struct:
		return compileStruct(t, version)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return bytesCodec{nullable: tag.nullable}
		}
		return &arrayCodec{
			elem:     compile(t.Elem(), version, versionRange{}),
			nullable: tag.nullable,
		}
	}
	panic(fmt.Sprintf("protocol: unsupported field type %s", t))
}

type intCodec struct {
	kind  reflect.Kind
	width int
}

func (c intCodec) size(reflect.Value) int { return c.width }

func (c intCodec) minSize() int { return c.width }

func (c intCodec) encode(w *writer, v reflect.Value) {
	switch c.kind {
	case reflect.Bool:
		if v.Bool() {
			w.int8(1)
		} else {
			w.int8(0)
		}
	case reflect.Int8:
		w.int8(int8(v.Int()))
	case reflect.Int16:
		w.int16(int16(v.Int()))
	case reflect.Int32:
		w.int32(int32(v.Int()))
	default:
		w.int64(v.Int())
	}
}

func (c intCodec) decode(r *reader, v reflect.Value) {
	switch c.kind {
	case reflect.Bool:
		v.SetBool(r.int8() != 0)
	case reflect.Int8:
		v.SetInt(int64(r.int8()))
	case reflect.Int16:
		v.SetInt(int64(r.int16()))
	case reflect.Int32:
		v.SetInt(int64(r.int32()))
	default:
		v.SetInt(r.int64())
	}
}

type stringCodec struct{ nullable bool }

func (c stringCodec) size(v reflect.Value) int { return 2 + v.Len() }

func (c stringCodec) minSize() int { return 2 }

func (c stringCodec) encode(w *writer, v reflect.Value) { w.string(v.String(), c.nullable) }

func (c stringCodec) decode(r *reader, v reflect.Value) { v.SetString(r.string(c.nullable)) }

type bytesCodec struct{ nullable bool }

func (c bytesCodec) size(v reflect.Value) int { return 4 + v.Len() }

func (c bytesCodec) minSize() int { return 4 }

func (c bytesCodec) encode(w *writer, v reflect.Value) { w.bytes(v.Bytes(), c.nullable) }

func (c bytesCodec) decode(r *reader, v reflect.Value) { v.SetBytes(r.bytes(c.nullable)) }

type arrayCodec struct {
	elem     codec
	nullable bool
}

func (c *arrayCodec) size(v reflect.Value) int {
	n := 4
	for i := 0; i < v.Len(); i++ {
		n += c.elem.size(v.Index(i))
	}
	return n
}

func (c *arrayCodec) minSize() int { return 4 }

func (c *arrayCodec) encode(w *writer, v reflect.Value) {
	if c.nullable && v.IsNil() {
		w.int32(-1)
		return
	}
	if v.Len() > math.MaxInt32 {
		w.fail(errorf("array of %d elements exceeds the int32 length prefix", v.Len()))
		return
	}
	w.int32(int32(v.Len()))
	for i := 0; i < v.Len() && w.err == nil; i++ {
		c.elem.encode(w, v.Index(i))
	}
}

func (c *arrayCodec) decode(r *reader, v reflect.Value) {
	n, ok := r.length(true, c.nullable)
	if !ok {
		v.Set(reflect.Zero(v.Type()))
		return
	}
	if n*max(c.elem.minSize(), 1) > r.remaining() {
		r.fail(ErrTruncated)
		return
	}
	s := reflect.MakeSlice(v.Type(), n, n)
	for i := 0; i < n && r.err == nil; i++ {
		c.elem.decode(r, s.Index(i))
	}
	v.Set(s)
}

type structField struct {
	index int
	codec codec
}

type structCodec struct {
	fields []structField
}

// compileStruct keeps the exported fields of t whose tag has an alternative
// containing version, in declaration order.
func compileStruct(t reflect.Type, version int16) *structCodec {
	c := &structCodec{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		for _, r := range mustParseTag(t, f) {
			if r.contains(version) {
				c.fields = append(c.fields, structField{index: i, codec: compile(f.Type, version, r)})
				break
			}
		}
	}
	return c
}

func (c *structCodec) size(v reflect.Value) int {
	n := 0
	for _, f := range c.fields {
		n += f.codec.size(v.Field(f.index))
	}
	return n
}

func (c *structCodec) minSize() int {
	n := 0
	for _, f := range c.fields {
		n += f.codec.minSize()
	}
	return n
}

func (c *structCodec) encode(w *writer, v reflect.Value) {
	for _, f := range c.fields {
		f.codec.encode(w, v.Field(f.index))
	}
}

func (c *structCodec) decode(r *reader, v reflect.Value) {
	for _, f := range c.fields {
		f.codec.decode(r, v.Field(f.index))
	}
}
