package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/tmthrgd/go-hex"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// KeySerializer builds the cache key for one operation invocation. Equal
// arguments must always produce equal keys.
type KeySerializer interface {
	SerializeKey(operation string, args ...any) string
}

// canonicalKeySerializer renders arguments into a readable canonical form.
// Maps and structs share one shape, {"name"=value,...} with names sorted,
// so map[string]any{"page": 1} and struct{Page int `url:"page"`}{1} land on
// the same key. Strings are always quoted, so separators inside a value and
// the string "nil" cannot collide with structure or a nil value.
type canonicalKeySerializer struct{}

// NewDefaultKeySerializer returns the readable canonical serializer.
func NewDefaultKeySerializer() KeySerializer {
	return canonicalKeySerializer{}
}

func (s canonicalKeySerializer) SerializeKey(operation string, args ...any) string {
	return joinKey(operation, canonicalArgs(args))
}

// hashedKeySerializer digests the canonical form with xxhash, giving short
// fixed-width keys for large argument sets.
type hashedKeySerializer struct{}

// NewHashedKeySerializer returns a serializer producing "operation::<16 hex>".
func NewHashedKeySerializer() KeySerializer {
	return hashedKeySerializer{}
}

func (s hashedKeySerializer) SerializeKey(operation string, args ...any) string {
	parts := canonicalArgs(args)
	if len(parts) == 0 {
		return operation
	}
	sum := xxhash.Sum64String(strings.Join(parts, KeySeparator))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return operation + KeySeparator + hex.EncodeToString(buf[:])
}

func joinKey(operation string, parts []string) string {
	if len(parts) == 0 {
		return operation
	}
	return operation + KeySeparator + strings.Join(parts, KeySeparator)
}

// canonicalArgs drops trailing nil arguments so Query(op, nil) and Query(op)
// share a key.
func canonicalArgs(args []any) []string {
	for len(args) > 0 && args[len(args)-1] == nil {
		args = args[:len(args)-1]
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = canonical(arg)
	}
	return parts
}

func canonical(v any) string {
	if v == nil {
		return "nil"
	}

	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case url.Values:
		return canonicalValues(val)
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || !rv.IsNil() {
			return strconv.Quote(val.String())
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return canonical(rv.Elem().Interface())
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Slice:
		if rv.IsNil() {
			return "[]"
		}
		return canonicalList(rv)
	case reflect.Array:
		return canonicalList(rv)
	case reflect.Map:
		return canonicalMap(rv)
	case reflect.Struct:
		return canonicalStruct(rv)
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "type:" + reflect.TypeOf(v).String()
	}
	return string(data)
}

func canonicalList(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = canonical(rv.Index(i).Interface())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func canonicalMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, canonical(iter.Key().Interface())+"="+canonical(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func canonicalValues(v url.Values) string {
	pairs := make([]string, 0, len(v))
	for k, vals := range v {
		if len(vals) == 1 {
			pairs = append(pairs, strconv.Quote(k)+"="+strconv.Quote(vals[0]))
			continue
		}
		quoted := make([]string, len(vals))
		for i, val := range vals {
			quoted[i] = strconv.Quote(val)
		}
		pairs = append(pairs, strconv.Quote(k)+"=["+strings.Join(quoted, ",")+"]")
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func canonicalStruct(rv reflect.Value) string {
	rt := rv.Type()
	pairs := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		pairs = append(pairs, strconv.Quote(fieldName(field))+"="+canonical(rv.Field(i).Interface()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

// fieldName prefers the url tag, then json, then the Go name. A "-" url tag
// still keeps the field in the key since it may carry a request body.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"url", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
