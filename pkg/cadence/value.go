package cadence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Type names of the JSON-Cadence interchange format.
const (
	TypeVoid     = "Void"
	TypeOptional = "Optional"
	TypeBool     = "Bool"
	TypeString   = "String"
	TypeAddress  = "Address"
	TypeInt      = "Int"
	TypeUInt     = "UInt"
	TypeUInt8    = "UInt8"
	TypeUInt32   = "UInt32"
	TypeUInt64   = "UInt64"
	TypeArray    = "Array"
	TypeStruct   = "Struct"
	TypeResource = "Resource"
	TypeEvent    = "Event"
)

// Field is a named member of a composite value.
type Field struct {
	Name  string
	Value Value
}

// Value is a decoded or to-be-encoded JSON-Cadence value.
type Value struct {
	Type string

	// scalar holds the string form of Bool, String, Address and integer types.
	scalar string
	items  []Value
	inner  *Value

	// composite
	id     string
	fields []Field
}

func String(s string) Value {
	return Value{Type: TypeString, scalar: s}
}

func Bool(b bool) Value {
	return Value{Type: TypeBool, scalar: strconv.FormatBool(b)}
}

func UInt(n uint64) Value {
	return Value{Type: TypeUInt, scalar: strconv.FormatUint(n, 10)}
}

func UInt64(n uint64) Value {
	return Value{Type: TypeUInt64, scalar: strconv.FormatUint(n, 10)}
}

// Address takes the address with a 0x prefix, as JSON-Cadence requires.
func Address(addr string) Value {
	return Value{Type: TypeAddress, scalar: addr}
}

func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: TypeArray, items: items}
}

func StringArray(items []string) Value {
	vals := make([]Value, len(items))
	for i, s := range items {
		vals[i] = String(s)
	}
	return Array(vals...)
}

// Optional wraps v; a nil v encodes as nil.
func Optional(v *Value) Value {
	return Value{Type: TypeOptional, inner: v}
}

func Struct(id string, fields ...Field) Value {
	return Value{Type: TypeStruct, id: id, fields: fields}
}

// IsNil reports whether v is an empty optional or void.
func (v Value) IsNil() bool {
	return v.Type == TypeVoid || (v.Type == TypeOptional && v.inner == nil)
}

// Unwrap returns the value inside an optional, or v itself.
func (v Value) Unwrap() Value {
	if v.Type == TypeOptional && v.inner != nil {
		return v.inner.Unwrap()
	}
	return v
}

func (v Value) ToString() (string, error) {
	v = v.Unwrap()
	if v.Type != TypeString && v.Type != TypeAddress {
		return "", fmt.Errorf("expected String, got %s", v.Type)
	}
	return v.scalar, nil
}

func (v Value) ToBool() (bool, error) {
	v = v.Unwrap()
	if v.Type != TypeBool {
		return false, fmt.Errorf("expected Bool, got %s", v.Type)
	}
	return strconv.ParseBool(v.scalar)
}

// ToUint64 converts any unsigned or non-negative integer value.
func (v Value) ToUint64() (uint64, error) {
	v = v.Unwrap()
	switch v.Type {
	case TypeUInt, TypeUInt8, TypeUInt32, TypeUInt64, TypeInt:
		n, err := strconv.ParseUint(v.scalar, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", v.Type, v.scalar, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected unsigned integer, got %s", v.Type)
	}
}

func (v Value) ToArray() ([]Value, error) {
	v = v.Unwrap()
	if v.Type != TypeArray {
		return nil, fmt.Errorf("expected Array, got %s", v.Type)
	}
	return v.items, nil
}

func (v Value) ToStringSlice() ([]string, error) {
	items, err := v.ToArray()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if out[i], err = item.ToString(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return out, nil
}

// TypeID returns the qualified type of a composite, e.g. A.0x1.TriviaGame.Question.
func (v Value) TypeID() string {
	return v.Unwrap().id
}

// Field looks up a composite field by name.
func (v Value) Field(name string) (Value, error) {
	v = v.Unwrap()
	switch v.Type {
	case TypeStruct, TypeResource, TypeEvent:
	default:
		return Value{}, fmt.Errorf("expected composite, got %s", v.Type)
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, nil
		}
	}
	return Value{}, fmt.Errorf("field %q not found in %s", name, v.id)
}

type jsonValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

type jsonField struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

type jsonComposite struct {
	ID     string      `json:"id"`
	Fields []jsonField `json:"fields"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch v.Type {
	case TypeVoid:
		return []byte(`{"type":"Void"}`), nil
	case TypeOptional:
		if v.inner == nil {
			return []byte(`{"type":"Optional","value":null}`), nil
		}
		payload = v.inner
	case TypeBool:
		b, err := strconv.ParseBool(v.scalar)
		if err != nil {
			return nil, err
		}
		payload = b
	case TypeArray:
		items := v.items
		if items == nil {
			items = []Value{}
		}
		payload = items
	case TypeStruct, TypeResource, TypeEvent:
		fields := make([]jsonField, len(v.fields))
		for i, f := range v.fields {
			fields[i] = jsonField{Name: f.Name, Value: f.Value}
		}
		payload = jsonComposite{ID: v.id, Fields: fields}
	case "":
		return nil, fmt.Errorf("cannot encode value without type")
	default:
		payload = v.scalar
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Type: v.Type, Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	if jv.Type == "" {
		return fmt.Errorf("missing type in JSON-Cadence value")
	}
	out := Value{Type: jv.Type}
	isNull := len(jv.Value) == 0 || bytes.Equal(jv.Value, []byte("null"))

	switch jv.Type {
	case TypeVoid:
	case TypeOptional:
		if !isNull {
			var inner Value
			if err := json.Unmarshal(jv.Value, &inner); err != nil {
				return fmt.Errorf("optional: %w", err)
			}
			out.inner = &inner
		}
	case TypeBool:
		var b bool
		if err := json.Unmarshal(jv.Value, &b); err != nil {
			return fmt.Errorf("bool: %w", err)
		}
		out.scalar = strconv.FormatBool(b)
	case TypeArray:
		var items []Value
		if !isNull {
			if err := json.Unmarshal(jv.Value, &items); err != nil {
				return fmt.Errorf("array: %w", err)
			}
		}
		if items == nil {
			items = []Value{}
		}
		out.items = items
	case TypeStruct, TypeResource, TypeEvent:
		var comp jsonComposite
		if err := json.Unmarshal(jv.Value, &comp); err != nil {
			return fmt.Errorf("%s: %w", jv.Type, err)
		}
		out.id = comp.ID
		out.fields = make([]Field, len(comp.Fields))
		for i, f := range comp.Fields {
			out.fields[i] = Field{Name: f.Name, Value: f.Value}
		}
	default:
		if isNull {
			return fmt.Errorf("%s: missing value", jv.Type)
		}
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return fmt.Errorf("%s: %w", jv.Type, err)
		}
		out.scalar = s
	}

	*v = out
	return nil
}

// Encode serializes v as a JSON-Cadence argument.
func Encode(v Value) ([]byte, error) {
	return json.Marshal(v)
}

// Decode parses a JSON-Cadence document.
func Decode(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(bytes.TrimSpace(data), &v); err != nil {
		return Value{}, fmt.Errorf("failed to decode JSON-Cadence value: %w", err)
	}
	return v, nil
}
