package facematch

import "sort"

// Matcher selects the nearest enrolled descriptor within Threshold.
type Matcher struct {
	// Threshold is the maximum accepted Euclidean distance (inclusive).
	Threshold float64
}

// NewMatcher creates a matcher with the given acceptance threshold.
func NewMatcher(threshold float64) *Matcher {
	return &Matcher{Threshold: threshold}
}

// Nearest returns the roster entry with the minimum distance to probe,
// ignoring the threshold. Ties resolve to the earliest entry in roster order.
// Returns false when no entry is comparable with the probe.
func Nearest(probe []float32, roster []Candidate) (Match, bool) {
	best := Match{Distance: MaxDistance, Position: -1}
	for i := range roster {
		c := &roster[i]
		if !c.Enrolled() {
			continue
		}
		d := EuclideanDistance(probe, c.Descriptor)
		if d == MaxDistance {
			continue
		}
		// Strict comparison keeps the first of equally distant candidates.
		if d < best.Distance {
			best = Match{
				EmployeeID: c.EmployeeID,
				Name:       c.Name,
				Distance:   d,
				Confidence: 1 - d,
				Position:   i,
			}
		}
	}
	if best.Position < 0 {
		return Match{}, false
	}
	return best, true
}

// Match returns the nearest roster entry if its distance is within the threshold.
func (m *Matcher) Match(probe []float32, roster []Candidate) (Match, bool) {
	best, ok := Nearest(probe, roster)
	if !ok || best.Distance > m.Threshold {
		return Match{}, false
	}
	return best, true
}

// Accepts reports whether a distance passes the threshold.
func (m *Matcher) Accepts(distance float64) bool {
	return distance <= m.Threshold
}

// Rank returns up to k comparable roster entries ordered by distance, then by
// roster position. k <= 0 returns all of them.
func Rank(probe []float32, roster []Candidate, k int) []Match {
	matches := make([]Match, 0, len(roster))
	for i := range roster {
		c := &roster[i]
		if !c.Enrolled() {
			continue
		}
		d := EuclideanDistance(probe, c.Descriptor)
		if d == MaxDistance {
			continue
		}
		matches = append(matches, Match{
			EmployeeID: c.EmployeeID,
			Name:       c.Name,
			Distance:   d,
			Confidence: 1 - d,
			Position:   i,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		return matches[a].Position < matches[b].Position
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
