package protocol

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// versionRange is one alternative of a `kafka:"..."` struct tag. Alternatives
// are separated by '|', for example:
//
//	Name string `kafka:"min=v0,max=v3|min=v4,max=v5,nullable"`
type versionRange struct {
	min      int16
	max      int16
	nullable bool
}

func (r versionRange) contains(version int16) bool {
	return r.min <= version && version <= r.max
}

// parseTag returns the alternatives of tag. An empty tag or "-" leaves the
// field out of every version.
func parseTag(tag string) ([]versionRange, error) {
	if tag == "" || tag == "-" {
		return nil, nil
	}

	var ranges []versionRange
	for _, alt := range strings.Split(tag, "|") {
		if alt == "" {
			continue
		}
		r := versionRange{min: -1, max: -1}

		for _, opt := range strings.Split(alt, ",") {
			var err error
			name, value, hasValue := strings.Cut(opt, "=")
			switch {
			case name == "min" && hasValue:
				r.min, err = parseVersion(value)
			case name == "max" && hasValue:
				r.max, err = parseVersion(value)
			case name == "nullable" && !hasValue:
				r.nullable = true
			default:
				err = fmt.Errorf("unknown option %q", opt)
			}
			if err != nil {
				return nil, fmt.Errorf("struct tag %q: %w", tag, err)
			}
		}

		switch {
		case r.min < 0:
			return nil, fmt.Errorf("struct tag %q: missing min version", tag)
		case r.max < 0:
			return nil, fmt.Errorf("struct tag %q: missing max version", tag)
		case r.min > r.max:
			return nil, fmt.Errorf("struct tag %q: min version v%d is greater than max version v%d", tag, r.min, r.max)
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func mustParseTag(t reflect.Type, f reflect.StructField) []versionRange {
	ranges, err := parseTag(f.Tag.Get("kafka"))
	if err != nil {
		panic(fmt.Sprintf("%s.%s: %v", t, f.Name, err))
	}
	return ranges
}

func parseVersion(s string) (int16, error) {
	digits, ok := strings.CutPrefix(s, "v")
	if !ok {
		return 0, fmt.Errorf("version %q does not start with 'v'", s)
	}
	i, err := strconv.ParseUint(digits, 10, 15)
	if err != nil {
		return 0, fmt.Errorf("version %q: %w", s, err)
	}
	return int16(i), nil
}

// versionRangeOf returns the lowest and highest versions named by the tags of
// the top-level fields of t.
func versionRangeOf(t reflect.Type) (lo, hi int16) {
	lo, hi = -1, -1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		for _, r := range mustParseTag(t, f) {
			if lo < 0 || r.min < lo {
				lo = r.min
			}
			if r.max > hi {
				hi = r.max
			}
		}
	}
	if lo < 0 {
		panic(fmt.Sprintf("%s: no field carries a kafka struct tag", t))
	}
	return lo, hi
}
