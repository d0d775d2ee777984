package job

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
)

// Value is an option value: either an integer or a string.
type Value struct {
	kind Kind
	i    int
	s    string
}

// IntValue wraps an integer option.
func IntValue(n int) Value { return Value{kind: KindInt, i: n} }

// StringValue wraps a string option.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ParseValue keeps the integer form of raw when it parses as one, otherwise the string.
func ParseValue(raw string) Value {
	if n, err := strconv.Atoi(raw); err == nil {
		return IntValue(n)
	}
	return StringValue(raw)
}

// ValueOf converts a decoded document value (TOML, JSON, YAML) into a Value.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case Value:
		return t, nil
	case int:
		return IntValue(t), nil
	case int32:
		return IntValue(int(t)), nil
	case int64:
		return IntValue(int(t)), nil
	case uint64:
		return IntValue(int(t)), nil
	case float64:
		if t != math.Trunc(t) {
			return Value{}, fmt.Errorf("non-integer number %v", t)
		}
		return IntValue(int(t)), nil
	case string:
		return StringValue(t), nil
	case bool:
		if t {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	default:
		return Value{}, fmt.Errorf("unsupported option type %T", v)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsInt() bool { return v.kind == KindInt }

// Int returns the integer form. String values that parse as integers are accepted.
func (v Value) Int() (int, bool) {
	if v.kind == KindInt {
		return v.i, true
	}
	n, err := strconv.Atoi(v.s)
	return n, err == nil
}

// String renders the value the way it is passed on a command line.
func (v Value) String() string {
	if v.kind == KindInt {
		return strconv.Itoa(v.i)
	}
	return v.s
}

// Str returns the string form when v holds a string.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Interface returns the underlying int or string.
func (v Value) Interface() any {
	if v.kind == KindInt {
		return v.i
	}
	return v.s
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Options maps option names to values.
type Options map[string]Value

// ParseOptions parses "key=value" pairs. Values are integers when they parse as one.
func ParseOptions(pairs []string) (Options, error) {
	opts := make(Options, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q: expected key=value", pair)
		}
		opts[key] = ParseValue(raw)
	}
	return opts, nil
}

// OptionsFromMap converts a decoded document table into Options.
func OptionsFromMap(m map[string]any) (Options, error) {
	opts := make(Options, len(m))
	for k, raw := range m {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", k, err)
		}
		opts[k] = v
	}
	return opts, nil
}

func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge returns a copy of o with every entry of over applied on top.
func (o Options) Merge(over Options) Options {
	out := o.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Map returns the options as plain Go values, suitable for decoders and templates.
func (o Options) Map() map[string]any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = v.Interface()
	}
	return out
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for key.
func (o Options) Get(key string) (Value, bool) {
	v, ok := o[key]
	return v, ok
}
