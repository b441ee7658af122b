package descriptor

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

// sampleValues returns a deterministic descriptor with a mix of magnitudes and signs.
func sampleValues() []float32 {
	values := make([]float32, Length)
	for i := range values {
		v := float32(math.Sin(float64(i)*0.37)) * 0.25
		if i%17 == 0 {
			v = 1e-05 * float32(i+1)
		}
		values[i] = v
	}
	return values
}

func TestDecode_AllWireFormats(t *testing.T) {
	values := sampleValues()

	for _, format := range []Format{FormatCSV, FormatJSONArray, FormatJSONObject} {
		t.Run(string(format), func(t *testing.T) {
			encoded, err := Encode(values, format)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(decoded) != Length {
				t.Fatalf("expected %d values, got %d", Length, len(decoded))
			}
			for i := range values {
				if decoded[i] != values[i] {
					t.Fatalf("value %d = %v, want %v", i, decoded[i], values[i])
				}
			}

			// encode(decode(x)) == x
			reencoded, err := Encode(decoded, format)
			if err != nil {
				t.Fatalf("re-Encode() error = %v", err)
			}
			if reencoded != encoded {
				t.Errorf("round trip changed the encoding:\n got %s\nwant %s", reencoded, encoded)
			}
		})
	}
}

func TestDecode_NativeSlices(t *testing.T) {
	values := sampleValues()

	f64 := make([]float64, len(values))
	anys := make([]any, len(values))
	for i, v := range values {
		f64[i] = float64(v)
		anys[i] = float64(v)
	}

	inputs := map[string]any{
		"float32":    values,
		"float64":    f64,
		"any":        anys,
		"descriptor": Descriptor(values),
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			d, err := Decode(input)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			for i := range values {
				if d[i] != values[i] {
					t.Fatalf("value %d = %v, want %v", i, d[i], values[i])
				}
			}
		})
	}
}

func TestDecode_RawJSON(t *testing.T) {
	values := sampleValues()
	arr, _ := Encode(values, FormatJSONArray)
	csv, _ := Encode(values, FormatCSV)
	quoted, _ := json.Marshal(csv)

	for name, raw := range map[string]json.RawMessage{
		"array":         json.RawMessage(arr),
		"quoted string": json.RawMessage(quoted),
	} {
		t.Run(name, func(t *testing.T) {
			d, err := Decode(raw)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !d.Valid() {
				t.Error("expected a valid descriptor")
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	short := strings.Repeat("0.1,", Length-2) + "0.1"
	withNaN := strings.Repeat("0.1,", Length-1) + "NaN"
	withInf := strings.Repeat("0.1,", Length-1) + "Inf"
	withWord := strings.Repeat("0.1,", Length-1) + "abc"
	withGap := strings.Repeat("0.1,", Length-1) + ""
	overflow := strings.Repeat("0.1,", Length-1) + "1e300"

	tests := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"empty string", "   "},
		{"wrong length", short},
		{"NaN element", withNaN},
		{"Inf element", withInf},
		{"word element", withWord},
		{"empty element", withGap},
		{"float32 overflow", overflow},
		{"malformed array", "[0.1, 0.2"},
		{"array with string", `["0.1"]`},
		{"array with null", `[null]`},
		{"object with bad key", `{"a": 0.1}`},
		{"object with gap", `{"0": 0.1, "2": 0.3}`},
		{"not a sequence", 42},
		{"map of strings", map[string]string{"0": "1"}},
		{"float64 NaN", []float64{math.NaN()}},
		{"json null", json.RawMessage("null")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Errorf("expected *DecodeError, got %T", err)
			}
		})
	}
}

func TestDecode_ElementIndexInError(t *testing.T) {
	raw := "0.1,0.2,oops,0.4"
	_, err := Parse(raw)

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decodeErr.Index != 2 {
		t.Errorf("expected index 2, got %d", decodeErr.Index)
	}
}

func TestParse_AnyLength(t *testing.T) {
	values, err := Parse("[1, 2.5, -3]")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []float32{1, 2.5, -3}
	if len(values) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(values))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, values[i], want[i])
		}
	}
}

func TestParse_ObjectSortsNumerically(t *testing.T) {
	values, err := Parse(`{"10": 10, "2": 2, "0": 0, "1": 1, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for i, v := range values {
		if v != float32(i) {
			t.Errorf("value %d = %v, want %d", i, v, i)
		}
	}
}

func TestEncode_RejectsNonFinite(t *testing.T) {
	values := []float32{0.1, float32(math.Inf(1))}
	if _, err := Encode(values, FormatCSV); err == nil {
		t.Error("expected error for infinite value")
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	if _, err := Encode([]float32{1}, Format("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDescriptor_Valid(t *testing.T) {
	if Descriptor(make([]float32, Length-1)).Valid() {
		t.Error("short descriptor should be invalid")
	}
	d := Descriptor(sampleValues())
	if !d.Valid() {
		t.Error("sample descriptor should be valid")
	}
	d[3] = float32(math.NaN())
	if d.Valid() {
		t.Error("descriptor with NaN should be invalid")
	}
}

func TestDescriptor_String(t *testing.T) {
	d := Descriptor{0.5, -1, 0.25}
	if got := d.String(); got != "0.5,-1,0.25" {
		t.Errorf("String() = %q, want %q", got, "0.5,-1,0.25")
	}
}
