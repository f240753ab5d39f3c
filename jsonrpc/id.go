package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidID is returned when an id is not a string, number or null.
var ErrInvalidID = errors.New("jsonrpc: id must be a string, number or null")

// IDKind classifies the JSON type of an ID.
type IDKind uint8

const (
	KindNull IDKind = iota
	KindNumber
	KindString
)

func (k IDKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	}
	return "null"
}

// ID is a request identifier. The zero value is the null id.
type ID struct {
	kind IDKind
	num  json.Number
	str  string
}

// NullID returns the null id.
func NullID() *ID { return &ID{} }

// StringID returns a string id.
func StringID(s string) *ID { return &ID{kind: KindString, str: s} }

// IntID returns a numeric id.
func IntID(n int64) *ID { return &ID{kind: KindNumber, num: json.Number(strconv.FormatInt(n, 10))} }

// NewID converts a Go scalar into an ID. Supported values are nil, strings,
// integers, floats, json.Number, ID and *ID.
func NewID(v interface{}) (*ID, error) {
	switch x := v.(type) {
	case nil:
		return NullID(), nil
	case ID:
		return &x, nil
	case *ID:
		if x == nil {
			return NullID(), nil
		}
		c := *x
		return &c, nil
	case string:
		return StringID(x), nil
	case json.Number:
		if _, err := x.Float64(); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, x)
		}
		return &ID{kind: KindNumber, num: x}, nil
	case int:
		return IntID(int64(x)), nil
	case int8:
		return IntID(int64(x)), nil
	case int16:
		return IntID(int64(x)), nil
	case int32:
		return IntID(int64(x)), nil
	case int64:
		return IntID(x), nil
	case uint:
		return &ID{kind: KindNumber, num: json.Number(strconv.FormatUint(uint64(x), 10))}, nil
	case uint8:
		return IntID(int64(x)), nil
	case uint16:
		return IntID(int64(x)), nil
	case uint32:
		return IntID(int64(x)), nil
	case uint64:
		return &ID{kind: KindNumber, num: json.Number(strconv.FormatUint(x, 10))}, nil
	case float32:
		return newFloatID(float64(x))
	case float64:
		return newFloatID(x)
	}
	return nil, fmt.Errorf("%w: got %T", ErrInvalidID, v)
}

func newFloatID(f float64) (*ID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, f)
	}
	return &ID{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}, nil
}

// Kind returns the JSON type of the id.
func (id *ID) Kind() IDKind {
	if id == nil {
		return KindNull
	}
	return id.kind
}

// IsNull reports whether id is nil or the null id.
func (id *ID) IsNull() bool { return id.Kind() == KindNull }

// Value returns the id as a Go scalar: nil, string, int64 or float64.
func (id *ID) Value() interface{} {
	switch id.Kind() {
	case KindString:
		return id.str
	case KindNumber:
		if n, err := id.num.Int64(); err == nil {
			return n
		}
		f, _ := id.num.Float64()
		return f
	}
	return nil
}

// Key returns a canonical string for comparing ids. Numbers that denote the
// same integer share a key regardless of their textual form.
func (id *ID) Key() string {
	switch id.Kind() {
	case KindString:
		return "s:" + id.str
	case KindNumber:
		if n, err := id.num.Int64(); err == nil {
			return "n:" + strconv.FormatInt(n, 10)
		}
		if f, err := id.num.Float64(); err == nil {
			if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
				return "n:" + strconv.FormatInt(int64(f), 10)
			}
			return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "n:" + id.num.String()
	}
	return "null"
}

// Equal reports whether both ids have the same key.
func (id *ID) Equal(other *ID) bool { return id.Key() == other.Key() }

func (id *ID) String() string {
	switch id.Kind() {
	case KindString:
		return strconv.Quote(id.str)
	case KindNumber:
		return id.num.String()
	}
	return "null"
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case KindString:
		return json.Marshal(id.str)
	case KindNumber:
		return []byte(id.num), nil
	}
	return []byte("null"), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidID
	}
	switch data[0] {
	case 'n':
		if !bytes.Equal(data, []byte("null")) {
			return ErrInvalidID
		}
		*id = ID{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID{kind: KindString, str: s}
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return err
		}
		*id = ID{kind: KindNumber, num: n}
		return nil
	}
	return ErrInvalidID
}
