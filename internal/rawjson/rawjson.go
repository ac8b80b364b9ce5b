// Package rawjson wraps decoded JSON payloads whose shape is only known at
// runtime. Every lookup is checked and reports a path-qualified error instead
// of panicking on a missing key or an unexpected type.
package rawjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrWrongType    = errors.New("wrong type")
)

// Kind is the structural type of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "null"
	}
}

// Value is one node of a decoded JSON document. The zero Value is null.
type Value struct {
	v    any
	path string
}

// Decode reads a single JSON document from r. Numbers are kept as
// json.Number so ids and counts survive without float rounding.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	return Value{v: v}, nil
}

// Parse decodes b.
func Parse(b []byte) (Value, error) { return Decode(bytes.NewReader(b)) }

// Of wraps an already decoded Go value (maps, slices, strings, numbers).
func Of(v any) Value { return Value{v: v} }

// Raw returns the underlying Go value.
func (v Value) Raw() any { return v.v }

// Path is the dotted location of v inside the document it came from.
func (v Value) Path() string {
	if v.path == "" {
		return "$"
	}
	return v.path
}

func (v Value) Kind() Kind {
	switch v.v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case json.Number, float64, int, int64, int32:
		return Number
	case string:
		return String
	case []any:
		return Array
	case map[string]any:
		return Object
	default:
		return Null
	}
}

func (v Value) IsArray() bool  { return v.Kind() == Array }
func (v Value) IsObject() bool { return v.Kind() == Object }

func (v Value) wrongType(want Kind) error {
	return fmt.Errorf("%w: %s is %s, want %s", ErrWrongType, v.Path(), v.Kind(), want)
}

// Has reports whether v is an object carrying key.
func (v Value) Has(key string) bool {
	m, ok := v.v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}

// Field returns the member key of an object.
func (v Value) Field(key string) (Value, error) {
	m, ok := v.v.(map[string]any)
	if !ok {
		return Value{}, v.wrongType(Object)
	}
	child, ok := m[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrMissingField, v.Path(), key)
	}
	return Value{v: child, path: v.Path() + "." + key}, nil
}

// Index returns element i of an array.
func (v Value) Index(i int) (Value, error) {
	a, ok := v.v.([]any)
	if !ok {
		return Value{}, v.wrongType(Array)
	}
	if i < 0 || i >= len(a) {
		return Value{}, fmt.Errorf("%w: %s[%d] (len %d)", ErrMissingField, v.Path(), i, len(a))
	}
	return Value{v: a[i], path: fmt.Sprintf("%s[%d]", v.Path(), i)}, nil
}

// Get walks a path of object keys (string) and array indexes (int).
func (v Value) Get(path ...any) (Value, error) {
	cur := v
	for _, p := range path {
		var err error
		switch k := p.(type) {
		case string:
			cur, err = cur.Field(k)
		case int:
			cur, err = cur.Index(k)
		default:
			return Value{}, fmt.Errorf("rawjson: unsupported path element %T", p)
		}
		if err != nil {
			return Value{}, err
		}
	}
	return cur, nil
}

// Array returns the elements of an array value.
func (v Value) Array() ([]Value, error) {
	a, ok := v.v.([]any)
	if !ok {
		return nil, v.wrongType(Array)
	}
	out := make([]Value, len(a))
	for i, e := range a {
		out[i] = Value{v: e, path: fmt.Sprintf("%s[%d]", v.Path(), i)}
	}
	return out, nil
}

// Text returns string content. Numbers are returned in their literal
// form so numeric ids can be read as strings.
func (v Value) Text() (string, error) {
	switch x := v.v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	}
	return "", v.wrongType(String)
}

// Int returns an integral number. Numeric strings are accepted.
func (v Value) Int() (int64, error) {
	switch x := v.v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not an integer: %v", ErrWrongType, v.Path(), err)
		}
		return n, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrWrongType, v.Path())
		}
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not an integer: %v", ErrWrongType, v.Path(), err)
		}
		return n, nil
	}
	return 0, v.wrongType(Number)
}

// IsInt reports whether v is a JSON number that is exactly the integer n.
// Strings, booleans and non-integral numbers never match.
func (v Value) IsInt(n int64) bool {
	if v.Kind() != Number {
		return false
	}
	got, err := v.Int()
	return err == nil && got == n
}

// MarshalJSON re-encodes the underlying value.
func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.v) }
