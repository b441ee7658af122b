// Package descriptor decodes and encodes face descriptors exchanged with the
// browser capture pipeline. A descriptor travels as comma-separated text, a
// JSON array, a JSON object keyed by index (what JSON.stringify produces for a
// Float32Array), or an already decoded numeric slice.
package descriptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Length is the number of components of a valid descriptor.
const Length = constants.DescriptorLength

// ErrDecode is the sentinel wrapped by every DecodeError.
var ErrDecode = errors.New("invalid descriptor")

// DecodeError describes why a raw descriptor was rejected.
// Index is the offending element position, or -1 when the whole value is at fault.
type DecodeError struct {
	Reason string
	Index  int
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid descriptor: element %d: %s", e.Index, e.Reason)
	}
	return "invalid descriptor: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

func decodeErr(reason string) error {
	return &DecodeError{Reason: reason, Index: -1}
}

func elementErr(i int, reason string) error {
	return &DecodeError{Reason: reason, Index: i}
}

// Descriptor is a face descriptor vector.
type Descriptor []float32

// Len returns the number of components.
func (d Descriptor) Len() int {
	return len(d)
}

// Valid reports whether the descriptor has the expected length and only finite values.
func (d Descriptor) Valid() bool {
	if len(d) != Length {
		return false
	}
	for _, v := range d {
		if isNonFinite(float64(v)) {
			return false
		}
	}
	return true
}

// Decode parses a raw descriptor and checks that it has exactly Length components.
func Decode(raw any) (Descriptor, error) {
	values, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if len(values) != Length {
		return nil, decodeErr(fmt.Sprintf("expected %d values, got %d", Length, len(values)))
	}
	return Descriptor(values), nil
}

// Parse decodes a raw descriptor of any length.
func Parse(raw any) ([]float32, error) {
	switch v := raw.(type) {
	case nil:
		return nil, decodeErr("descriptor is missing")
	case string:
		return parseString(v)
	case []byte:
		return parseString(string(v))
	case json.RawMessage:
		return parseRawJSON(v)
	case Descriptor:
		return copyFloat32(v)
	case []float32:
		return copyFloat32(v)
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			c, err := toFloat32(i, f)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case []any:
		return fromAnySlice(v)
	case map[string]any:
		return fromIndexedObject(v)
	default:
		return nil, decodeErr(fmt.Sprintf("unsupported type %T, expected a sequence of numbers", raw))
	}
}

// parseRawJSON handles a JSON value embedded in a request body: either a
// string holding one of the text formats or a JSON array/object.
func parseRawJSON(raw json.RawMessage) ([]float32, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, decodeErr("descriptor is missing")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, decodeErr("malformed JSON string")
		}
		return parseString(s)
	}
	return parseString(string(trimmed))
}

func parseString(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, decodeErr("descriptor is empty")
	}

	switch s[0] {
	case '[':
		var values []any
		if err := unmarshalNumbers(s, &values); err != nil {
			return nil, decodeErr("malformed JSON array")
		}
		return fromAnySlice(values)
	case '{':
		var obj map[string]any
		if err := unmarshalNumbers(s, &obj); err != nil {
			return nil, decodeErr("malformed JSON object")
		}
		return fromIndexedObject(obj)
	default:
		return parseCSV(s)
	}
}

// unmarshalNumbers decodes JSON keeping numbers as json.Number so they can be
// parsed directly at float32 precision.
func unmarshalNumbers(s string, target any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func parseCSV(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, part := range parts {
		f, err := parseNumber(i, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func parseNumber(i int, s string) (float32, error) {
	if s == "" {
		return 0, elementErr(i, "empty value")
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, elementErr(i, "value out of range")
		}
		return 0, elementErr(i, fmt.Sprintf("not a number: %q", s))
	}
	if isNonFinite(f) {
		return 0, elementErr(i, "value is not finite")
	}
	return float32(f), nil
}

func fromAnySlice(values []any) ([]float32, error) {
	out := make([]float32, len(values))
	for i, v := range values {
		f, err := anyToFloat32(i, v)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func fromIndexedObject(obj map[string]any) ([]float32, error) {
	if len(obj) == 0 {
		return []float32{}, nil
	}
	type entry struct {
		index int
		value any
	}
	entries := make([]entry, 0, len(obj))
	for k, v := range obj {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, decodeErr(fmt.Sprintf("object key %q is not an index", k))
		}
		entries = append(entries, entry{index: idx, value: v})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	out := make([]float32, len(entries))
	for i, e := range entries {
		if e.index != i {
			return nil, decodeErr(fmt.Sprintf("object index %d missing", i))
		}
		f, err := anyToFloat32(i, e.value)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func anyToFloat32(i int, v any) (float32, error) {
	switch n := v.(type) {
	case json.Number:
		return parseNumber(i, n.String())
	case float64:
		return toFloat32(i, n)
	case float32:
		return toFloat32(i, float64(n))
	case int:
		return float32(n), nil
	case int64:
		return float32(n), nil
	default:
		return 0, elementErr(i, fmt.Sprintf("not a number: %v", v))
	}
}

func toFloat32(i int, f float64) (float32, error) {
	if isNonFinite(f) {
		return 0, elementErr(i, "value is not finite")
	}
	if math.Abs(f) > math.MaxFloat32 {
		return 0, elementErr(i, "value out of range")
	}
	return float32(f), nil
}

func copyFloat32(v []float32) ([]float32, error) {
	out := make([]float32, len(v))
	for i, f := range v {
		if isNonFinite(float64(f)) {
			return nil, elementErr(i, "value is not finite")
		}
		out[i] = f
	}
	return out, nil
}

func isNonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
