package protocol

// Marshal encodes the body of msg with the layout of version, without a size
// prefix or header. Values which do not fit their length prefixes are
// reported as malformed and no bytes are returned.
func Marshal(version int16, msg Message) ([]byte, error) {
	s, err := schemaFor(msg, version)
	if err != nil {
		return nil, err
	}
	w := &writer{b: make([]byte, 0, s.size(msg))}
	s.encode(w, msg)
	if w.err != nil {
		return nil, shapeError(msg.ApiKey(), version, w.err)
	}
	return w.b, nil
}

// Unmarshal decodes b into msg with the layout of version. All of b must be
// consumed, leftover bytes make the message malformed.
//
// Fields absent from the version are left untouched.
func Unmarshal(b []byte, version int16, msg Message) error {
	s, err := schemaFor(msg, version)
	if err != nil {
		return err
	}
	r := &reader{b: b}
	s.decode(r, msg)
	r.done()
	return shapeError(msg.ApiKey(), version, r.err)
}
