package descriptor

import (
	"fmt"
	"strconv"
	"strings"
)

// Format selects a wire representation for Encode.
type Format string

const (
	FormatCSV        Format = "csv"
	FormatJSONArray  Format = "json_array"
	FormatJSONObject Format = "json_object"
)

// Encode renders values in the given wire format using the shortest
// representation that parses back to the same float32.
func Encode(values []float32, format Format) (string, error) {
	for i, v := range values {
		if isNonFinite(float64(v)) {
			return "", elementErr(i, "value is not finite")
		}
	}

	var b strings.Builder
	switch format {
	case FormatCSV:
		writeList(&b, values)
	case FormatJSONArray:
		b.WriteByte('[')
		writeList(&b, values)
		b.WriteByte(']')
	case FormatJSONObject:
		b.WriteByte('{')
		for i, v := range values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strconv.Itoa(i))
			b.WriteString(`":`)
			b.WriteString(formatValue(v))
		}
		b.WriteByte('}')
	default:
		return "", fmt.Errorf("unknown descriptor format %q", format)
	}
	return b.String(), nil
}

// String returns the comma-separated form, the format used for storage in text columns.
func (d Descriptor) String() string {
	var b strings.Builder
	writeList(&b, d)
	return b.String()
}

func writeList(b *strings.Builder, values []float32) {
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(formatValue(v))
	}
}

func formatValue(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
