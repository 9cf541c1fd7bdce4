package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Kind 标识 Payload 的变体
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String 返回变体名称
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Payload is the dynamically typed value flowing between nodes: a JSON-like
// tree of null, bool, number, string, array and object.
//
// A Payload is immutable. Constructors copy their arguments and accessors
// that expose containers return copies, so the same value can be handed to
// any number of concurrent nodes. The zero value is Null.
type Payload struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Payload
	obj  map[string]Payload
}

// =============================================================================
// 构造函数
// =============================================================================

// Null 返回 null
func Null() Payload { return Payload{} }

// Bool 创建布尔值
func Bool(b bool) Payload { return Payload{kind: KindBool, b: b} }

// Number 创建数值
func Number(n float64) Payload { return Payload{kind: KindNumber, n: n} }

// Int 创建整数数值
// 数值统一以 float64 存储，|i| > 2^53 时会丢失精度
func Int(i int64) Payload { return Payload{kind: KindNumber, n: float64(i)} }

// String 创建字符串
func String(s string) Payload { return Payload{kind: KindString, s: s} }

// Array 创建数组（复制参数）
func Array(items ...Payload) Payload {
	arr := make([]Payload, len(items))
	copy(arr, items)
	return Payload{kind: KindArray, arr: arr}
}

// Object 创建对象（复制参数）
func Object(fields map[string]Payload) Payload {
	obj := make(map[string]Payload, len(fields))
	for k, v := range fields {
		obj[k] = v
	}
	return Payload{kind: KindObject, obj: obj}
}

// =============================================================================
// 访问器
// =============================================================================

// Kind 返回变体
func (p Payload) Kind() Kind { return p.kind }

// IsNull reports whether p is Null.
func (p Payload) IsNull() bool { return p.kind == KindNull }

// AsBool 返回布尔值
func (p Payload) AsBool() (bool, bool) {
	return p.b, p.kind == KindBool
}

// AsNumber 返回数值
func (p Payload) AsNumber() (float64, bool) {
	return p.n, p.kind == KindNumber
}

// AsInt returns the number as an int64 when it has no fractional part and
// fits the int64 range.
func (p Payload) AsInt() (int64, bool) {
	if p.kind != KindNumber || p.n != math.Trunc(p.n) || p.n < -(1<<63) || p.n >= 1<<63 {
		return 0, false
	}
	return int64(p.n), true
}

// AsString 返回字符串
func (p Payload) AsString() (string, bool) {
	return p.s, p.kind == KindString
}

// AsArray 返回数组元素的副本
func (p Payload) AsArray() ([]Payload, bool) {
	if p.kind != KindArray {
		return nil, false
	}
	return slices.Clone(p.arr), true
}

// AsObject 返回对象字段的副本
func (p Payload) AsObject() (map[string]Payload, bool) {
	if p.kind != KindObject {
		return nil, false
	}
	obj := make(map[string]Payload, len(p.obj))
	for k, v := range p.obj {
		obj[k] = v
	}
	return obj, true
}

// Len returns the number of elements of an array, fields of an object, or
// bytes of a string. Other kinds report 0.
func (p Payload) Len() int {
	switch p.kind {
	case KindArray:
		return len(p.arr)
	case KindObject:
		return len(p.obj)
	case KindString:
		return len(p.s)
	default:
		return 0
	}
}

// Index 返回数组第 i 个元素
func (p Payload) Index(i int) (Payload, bool) {
	if p.kind != KindArray || i < 0 || i >= len(p.arr) {
		return Payload{}, false
	}
	return p.arr[i], true
}

// Get 返回对象字段
func (p Payload) Get(key string) (Payload, bool) {
	if p.kind != KindObject {
		return Payload{}, false
	}
	v, ok := p.obj[key]
	return v, ok
}

// Keys 返回排序后的对象键
func (p Payload) Keys() []string {
	if p.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(p.obj))
	for k := range p.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of the object p with key set to value.
func (p Payload) With(key string, value Payload) (Payload, error) {
	if p.kind != KindObject {
		return Payload{}, NewDecodeError(fmt.Sprintf("cannot set field %q on %s payload", key, p.kind))
	}
	obj := make(map[string]Payload, len(p.obj)+1)
	for k, v := range p.obj {
		obj[k] = v
	}
	obj[key] = value
	return Payload{kind: KindObject, obj: obj}, nil
}

// Equal 结构相等比较
func (p Payload) Equal(other Payload) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case KindNull:
		return true
	case KindBool:
		return p.b == other.b
	case KindNumber:
		return p.n == other.n
	case KindString:
		return p.s == other.s
	case KindArray:
		if len(p.arr) != len(other.arr) {
			return false
		}
		for i := range p.arr {
			if !p.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(p.obj) != len(other.obj) {
			return false
		}
		for k, v := range p.obj {
			ov, ok := other.obj[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String 返回紧凑 JSON 表示
func (p Payload) String() string {
	data, err := p.MarshalJSON()
	if err != nil {
		return "<invalid payload: " + err.Error() + ">"
	}
	return string(data)
}

// =============================================================================
// JSON 编解码
// =============================================================================

// MarshalJSON implements json.Marshaler. Object keys are written in sorted
// order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p Payload) appendJSON(buf *bytes.Buffer) error {
	switch p.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(p.b))
	case KindNumber:
		if math.IsNaN(p.n) || math.IsInf(p.n, 0) {
			return fmt.Errorf("unsupported number %v", p.n)
		}
		data, _ := json.Marshal(p.n)
		buf.Write(data)
	case KindString:
		data, _ := json.Marshal(p.s)
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range p.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range p.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			buf.Write(key)
			buf.WriteByte(':')
			if err := p.obj[k].appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown payload kind %d", p.kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseJSON 将 JSON 文本解析为 Payload，失败返回 DECODE_ERROR
func ParseJSON(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Payload{}, NewDecodeError("invalid JSON").WithCause(err)
	}
	if dec.More() {
		return Payload{}, NewDecodeError("invalid JSON: trailing data after value")
	}
	return FromAny(raw)
}

// =============================================================================
// Go 值转换
// =============================================================================

// FromAny converts a JSON-compatible Go value tree into a Payload. Supported
// leaves are nil, bool, every integer and float kind, json.Number, string
// and Payload; containers are []any and map[string]any (or typed slices and
// string-keyed maps of supported values).
func FromAny(v any) (Payload, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Payload:
		return x, nil
	case *Payload:
		if x == nil {
			return Null(), nil
		}
		return *x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case int32:
		return Int(int64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Payload{}, NewDecodeError(fmt.Sprintf("invalid number %q", x.String())).WithCause(err)
		}
		return Number(f), nil
	case []any:
		arr := make([]Payload, len(x))
		for i, item := range x {
			p, err := FromAny(item)
			if err != nil {
				return Payload{}, err
			}
			arr[i] = p
		}
		return Payload{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Payload, len(x))
		for k, item := range x {
			p, err := FromAny(item)
			if err != nil {
				return Payload{}, err
			}
			obj[k] = p
		}
		return Payload{kind: KindObject, obj: obj}, nil
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(rv reflect.Value) (Payload, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		arr := make([]Payload, rv.Len())
		for i := range arr {
			p, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return Payload{}, err
			}
			arr[i] = p
		}
		return Payload{kind: KindArray, arr: arr}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Payload{}, NewDecodeError(fmt.Sprintf("unsupported map key type %s", rv.Type().Key()))
		}
		if rv.IsNil() {
			return Null(), nil
		}
		obj := make(map[string]Payload, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			p, err := FromAny(iter.Value().Interface())
			if err != nil {
				return Payload{}, err
			}
			obj[iter.Key().String()] = p
		}
		return Payload{kind: KindObject, obj: obj}, nil
	}
	return Payload{}, NewDecodeError(fmt.Sprintf("unsupported value of type %s", rv.Type()))
}

// ToAny converts p into plain Go values: nil, bool, float64, string, []any
// and map[string]any.
func (p Payload) ToAny() any {
	switch p.kind {
	case KindBool:
		return p.b
	case KindNumber:
		return p.n
	case KindString:
		return p.s
	case KindArray:
		out := make([]any, len(p.arr))
		for i, item := range p.arr {
			out[i] = item.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(p.obj))
		for k, v := range p.obj {
			out[k] = v.ToAny()
		}
		return out
	default:
		return nil
	}
}

// =============================================================================
// 类型化编解码
// =============================================================================

// Validator is implemented by typed inputs that check their own invariants
// after decoding, e.g. required fields.
type Validator interface {
	Validate() error
}

// Decode converts p into a value of type T using T's JSON mapping (struct
// tags, json.Unmarshaler). A shape mismatch, a null payload for a struct
// type, a missing required field, or a failed Validate call is reported as
// DECODE_ERROR.
//
// Every struct field is required unless it is a pointer or tagged
// omitempty/omitzero. Unknown object keys are ignored.
func Decode[T any](p Payload) (T, error) {
	var out T
	if p.kind == KindNull && reflect.TypeFor[T]().Kind() == reflect.Struct {
		return out, NewDecodeError(fmt.Sprintf("cannot decode null payload into %T", out))
	}
	data, err := p.MarshalJSON()
	if err != nil {
		return out, NewDecodeError("payload is not representable as JSON").WithCause(err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, NewDecodeError(fmt.Sprintf("cannot decode %s payload into %T", p.kind, out)).WithCause(err)
	}
	if t := reflect.TypeFor[T](); t.Kind() == reflect.Struct && p.kind == KindObject && !isJSONUnmarshaler(t) {
		if missing := missingField(t, p.obj, ""); missing != "" {
			return out, NewDecodeError(fmt.Sprintf("missing field %q for %T", missing, out))
		}
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return out, NewDecodeError(fmt.Sprintf("invalid %T: %v", out, err)).WithCause(err)
		}
	}
	return out, nil
}

var jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()

func isJSONUnmarshaler(t reflect.Type) bool {
	return t.Implements(jsonUnmarshalerType) || reflect.PointerTo(t).Implements(jsonUnmarshalerType)
}

// missingField returns the dotted path of the first required field of t
// that has no key in obj, or "" when all are present. Keys match field
// names case-insensitively, like encoding/json.
func missingField(t reflect.Type, obj map[string]Payload, prefix string) string {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		// 匿名嵌入结构体的字段提升到外层对象
		if f.Anonymous && name == "" {
			if f.Type.Kind() == reflect.Struct && !isJSONUnmarshaler(f.Type) {
				if missing := missingField(f.Type, obj, prefix); missing != "" {
					return missing
				}
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if f.Type.Kind() == reflect.Pointer || hasTagOption(opts, "omitempty") || hasTagOption(opts, "omitzero") {
			continue
		}

		value, ok := lookupField(obj, name)
		if !ok {
			return prefix + name
		}
		if f.Type.Kind() == reflect.Struct && value.kind == KindObject && !isJSONUnmarshaler(f.Type) {
			if missing := missingField(f.Type, value.obj, prefix+name+"."); missing != "" {
				return missing
			}
		}
	}
	return ""
}

func lookupField(obj map[string]Payload, name string) (Payload, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return Payload{}, false
}

func hasTagOption(opts, option string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == option {
			return true
		}
	}
	return false
}

// Encode converts a typed value into a Payload using its JSON mapping. A
// value that cannot be encoded is a programming defect and is reported as
// UNKNOWN.
func Encode(v any) (Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Payload{}, NewUnknownError(fmt.Sprintf("cannot encode %T as payload", v)).WithCause(err)
	}
	p, err := ParseJSON(data)
	if err != nil {
		return Payload{}, NewUnknownError(fmt.Sprintf("cannot encode %T as payload", v)).WithCause(err)
	}
	return p, nil
}

// MustParseJSON 解析 JSON，失败时 panic（用于测试和静态数据）
func MustParseJSON(s string) Payload {
	p, err := ParseJSON([]byte(s))
	if err != nil {
		panic(fmt.Sprintf("types.MustParseJSON: %v", err))
	}
	return p
}
