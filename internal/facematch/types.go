// Package facematch resolves a probe face descriptor to an enrolled employee.
// It is shared between the HTTP adapters, the attendance service and the CLI.
package facematch

// Candidate is an enrolled roster entry. Entries without a descriptor are
// kept in the roster but never selected.
type Candidate struct {
	EmployeeID string
	Name       string
	Descriptor []float32
}

// Enrolled reports whether the candidate has a descriptor to match against.
func (c *Candidate) Enrolled() bool {
	return len(c.Descriptor) > 0
}

// Match is the best roster entry for a probe.
type Match struct {
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name,omitempty"`
	Distance   float64 `json:"distance"`
	// Confidence is 1 - Distance. It is a relative score, not a probability,
	// and can fall outside [0, 1].
	Confidence float64 `json:"confidence"`
	// Position is the candidate's index in the roster slice.
	Position int `json:"-"`
}
