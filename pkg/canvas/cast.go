package canvas

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The null* types decode a JSON scalar leniently into one target type.
// Values that cannot be cast (objects, arrays, garbage text) become null
// instead of failing the whole batch.

type nullString struct {
	v  string
	ok bool
}

func (n *nullString) UnmarshalJSON(b []byte) error {
	n.v, n.ok = "", false
	switch x := scalar(b).(type) {
	case string:
		n.v, n.ok = x, true
	case json.Number:
		n.v, n.ok = x.String(), true
	case bool:
		n.v, n.ok = strconv.FormatBool(x), true
	}
	return nil
}

func (n nullString) value() any {
	if !n.ok {
		return nil
	}
	return n.v
}

type nullFloat struct {
	v  float64
	ok bool
}

func (n *nullFloat) UnmarshalJSON(b []byte) error {
	n.v, n.ok = 0, false
	switch x := scalar(b).(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			n.v, n.ok = f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			n.v, n.ok = f, true
		}
	case bool:
		n.ok = true
		if x {
			n.v = 1
		}
	}
	return nil
}

func (n nullFloat) value() any {
	if !n.ok {
		return nil
	}
	return n.v
}

type nullInt struct {
	v  int64
	ok bool
}

func (n *nullInt) UnmarshalJSON(b []byte) error {
	n.v, n.ok = 0, false
	switch x := scalar(b).(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			n.v, n.ok = i, true
		} else if f, err := x.Float64(); err == nil && !math.IsInf(f, 0) && math.Abs(f) < math.MaxInt64 {
			n.v, n.ok = int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			n.v, n.ok = i, true
		}
	case bool:
		n.ok = true
		if x {
			n.v = 1
		}
	}
	return nil
}

func (n nullInt) value() any {
	if !n.ok {
		return nil
	}
	return n.v
}

type nullBool struct {
	v  bool
	ok bool
}

func (n *nullBool) UnmarshalJSON(b []byte) error {
	n.v, n.ok = false, false
	switch x := scalar(b).(type) {
	case bool:
		n.v, n.ok = x, true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			n.v, n.ok = f != 0, true
		}
	case string:
		if v, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			n.v, n.ok = v, true
		}
	}
	return nil
}

func (n nullBool) value() any {
	if !n.ok {
		return nil
	}
	return n.v
}

// scalar decodes b into nil, bool, string or json.Number. Objects and arrays
// yield nil.
func scalar(b []byte) any {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	switch v.(type) {
	case bool, string, json.Number:
		return v
	default:
		return nil
	}
}
