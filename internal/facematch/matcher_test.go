package facematch

import (
	"math"
	"testing"
)

// vec builds a descriptor of the given length filled with v.
func vec(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"unequal length", []float32{1, 2}, []float32{1, 2, 3}, MaxDistance},
		{"empty", []float32{}, []float32{}, MaxDistance},
		{"NaN", []float32{float32(math.NaN()), 0}, []float32{0, 0}, MaxDistance},
		{"Inf", []float32{0, 0}, []float32{float32(math.Inf(-1)), 0}, MaxDistance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EuclideanDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 && got != tt.want {
				t.Errorf("EuclideanDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatcher_PicksMinimumDistance(t *testing.T) {
	probe := vec(128, 0.5)
	roster := []Candidate{
		{EmployeeID: "far", Descriptor: vec(128, 0.6)},
		{EmployeeID: "near", Descriptor: vec(128, 0.51)},
		{EmployeeID: "mid", Descriptor: vec(128, 0.53)},
	}

	m := NewMatcher(0.6)
	match, ok := m.Match(probe, roster)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.EmployeeID != "near" {
		t.Errorf("expected near, got %s", match.EmployeeID)
	}
	if match.Position != 1 {
		t.Errorf("expected position 1, got %d", match.Position)
	}
	if math.Abs(match.Confidence-(1-match.Distance)) > 1e-12 {
		t.Errorf("confidence %v should be 1 - distance %v", match.Confidence, match.Distance)
	}
}

func TestMatcher_TieResolvesToFirst(t *testing.T) {
	probe := vec(4, 0)
	roster := []Candidate{
		{EmployeeID: "a", Descriptor: []float32{1, 0, 0, 0}},
		{EmployeeID: "b", Descriptor: []float32{0, 1, 0, 0}},
		{EmployeeID: "c", Descriptor: []float32{0, 0, 1, 0}},
	}

	m := NewMatcher(2)
	for range 10 {
		match, ok := m.Match(probe, roster)
		if !ok {
			t.Fatal("expected a match")
		}
		if match.EmployeeID != "a" {
			t.Fatalf("expected first candidate a, got %s", match.EmployeeID)
		}
		if match.Distance != 1 {
			t.Fatalf("expected distance 1, got %v", match.Distance)
		}
	}
}

func TestMatcher_EmptyRoster(t *testing.T) {
	m := NewMatcher(100)
	if _, ok := m.Match(vec(128, 0), nil); ok {
		t.Error("expected no match for empty roster")
	}
}

func TestMatcher_AboveThreshold(t *testing.T) {
	m := NewMatcher(0.4)
	roster := []Candidate{{EmployeeID: "x", Descriptor: vec(128, 1)}}
	if _, ok := m.Match(vec(128, 0), roster); ok {
		t.Error("expected no match above threshold")
	}
}

func TestMatcher_ThresholdIsInclusive(t *testing.T) {
	m := NewMatcher(5)
	roster := []Candidate{{EmployeeID: "x", Descriptor: []float32{3, 4}}}
	match, ok := m.Match([]float32{0, 0}, roster)
	if !ok {
		t.Fatal("expected distance equal to threshold to match")
	}
	if match.Distance != 5 {
		t.Errorf("expected distance 5, got %v", match.Distance)
	}
	if !m.Accepts(5) || m.Accepts(5.0001) {
		t.Error("Accepts should be inclusive of the threshold only")
	}
}

func TestMatcher_NeverSelectsUnequalLength(t *testing.T) {
	probe := vec(128, 0)
	roster := []Candidate{
		// A shorter vector of zeros would be "identical" if lengths were ignored.
		{EmployeeID: "short", Descriptor: vec(64, 0)},
		{EmployeeID: "long", Descriptor: vec(129, 0)},
		{EmployeeID: "ok", Descriptor: vec(128, 0.01)},
	}

	match, ok := NewMatcher(100).Match(probe, roster)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.EmployeeID != "ok" {
		t.Errorf("expected ok, got %s", match.EmployeeID)
	}

	// Only malformed entries: nothing is selected even with a huge threshold.
	if _, ok := NewMatcher(math.MaxFloat64).Match(probe, roster[:2]); ok {
		t.Error("expected no match when only unequal-length entries exist")
	}
}

func TestMatcher_SkipsUnenrolled(t *testing.T) {
	probe := vec(128, 0.2)
	roster := []Candidate{
		{EmployeeID: "unenrolled"},
		{EmployeeID: "enrolled", Descriptor: vec(128, 0.9)},
	}

	match, ok := NewMatcher(math.MaxFloat64).Match(probe, roster)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.EmployeeID == "unenrolled" {
		t.Error("employee without a descriptor must never be returned")
	}

	if _, ok := NewMatcher(math.MaxFloat64).Match(probe, roster[:1]); ok {
		t.Error("roster of unenrolled employees must not match")
	}
}

func TestMatcher_SkipsNonFiniteRosterEntries(t *testing.T) {
	bad := vec(128, 0)
	bad[10] = float32(math.NaN())
	roster := []Candidate{
		{EmployeeID: "bad", Descriptor: bad},
		{EmployeeID: "good", Descriptor: vec(128, 0.05)},
	}

	match, ok := NewMatcher(1).Match(vec(128, 0), roster)
	if !ok || match.EmployeeID != "good" {
		t.Errorf("expected good, got %+v (ok=%v)", match, ok)
	}
}

func TestRank(t *testing.T) {
	probe := []float32{0, 0}
	roster := []Candidate{
		{EmployeeID: "c", Descriptor: []float32{3, 0}},
		{EmployeeID: "a", Descriptor: []float32{1, 0}},
		{EmployeeID: "none"},
		{EmployeeID: "b1", Descriptor: []float32{0, 2}},
		{EmployeeID: "b2", Descriptor: []float32{2, 0}},
	}

	ranked := Rank(probe, roster, 0)
	want := []string{"a", "b1", "b2", "c"}
	if len(ranked) != len(want) {
		t.Fatalf("expected %d ranked entries, got %d", len(want), len(ranked))
	}
	for i, id := range want {
		if ranked[i].EmployeeID != id {
			t.Errorf("rank %d = %s, want %s", i, ranked[i].EmployeeID, id)
		}
	}

	top := Rank(probe, roster, 2)
	if len(top) != 2 || top[0].EmployeeID != "a" {
		t.Errorf("unexpected top-2: %+v", top)
	}
}
