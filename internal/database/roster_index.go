package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// ErrIndexEmpty is returned when searching an index with no enrolled employees.
var ErrIndexEmpty = errors.New("roster index is empty")

// Neighbor is an employee returned by a roster index search.
type Neighbor struct {
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
}

// RosterIndex wraps an HNSW graph over enrolled employee descriptors.
// It serves approximate "who looks alike" queries for enrolment warnings;
// attendance identification always uses the exact scan in facematch.
type RosterIndex struct {
	graph     *hnsw.Graph[string]
	employees map[string]*StoredEmployee // Maps HNSW node key to employee
	dirty     bool                       // Graph must be rebuilt before the next search
	mu        sync.RWMutex
}

// NewRosterIndex creates a new empty roster index.
func NewRosterIndex() *RosterIndex {
	return &RosterIndex{
		employees: make(map[string]*StoredEmployee),
	}
}

// indexable reports whether the employee's descriptor fits the graph.
// The graph panics on mixed dimensions.
func indexable(emp *StoredEmployee) bool {
	return len(emp.Descriptor) == constants.DescriptorLength
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build builds the index from a roster. Employees without a descriptor are skipped.
func (r *RosterIndex) Build(employees []StoredEmployee) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.employees = make(map[string]*StoredEmployee, len(employees))
	for i := range employees {
		emp := employees[i]
		if !indexable(&emp) {
			continue
		}
		r.employees[emp.ID] = &emp
	}
	r.rebuildLocked()
}

// rebuildLocked recreates the graph from the employee map in ID order.
func (r *RosterIndex) rebuildLocked() {
	r.dirty = false
	if len(r.employees) == 0 {
		r.graph = nil
		return
	}

	ids := make([]string, 0, len(r.employees))
	for id := range r.employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := newGraph()
	for _, id := range ids {
		g.Add(hnsw.MakeNode(id, r.employees[id].Descriptor))
	}
	r.graph = g
}

// Put adds or replaces an employee's descriptor in the index.
func (r *RosterIndex) Put(emp StoredEmployee) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !indexable(&emp) {
		delete(r.employees, emp.ID)
		r.dirty = true
		return
	}

	_, exists := r.employees[emp.ID]
	r.employees[emp.ID] = &emp
	if exists || r.dirty {
		// HNSW has no cheap in-place replacement, rebuild lazily.
		r.dirty = true
		return
	}
	if r.graph == nil {
		r.graph = newGraph()
	}
	r.graph.Add(hnsw.MakeNode(emp.ID, emp.Descriptor))
}

// Remove drops an employee from the index.
func (r *RosterIndex) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.employees[id]; !ok {
		return
	}
	delete(r.employees, id)
	r.dirty = true
}

// Search returns up to k employees nearest to the query, ordered by exact
// Euclidean distance. Employees whose ID is in exclude are skipped.
func (r *RosterIndex) Search(query []float32, k int, exclude ...string) ([]Neighbor, error) {
	r.mu.Lock()
	if r.dirty {
		r.rebuildLocked()
	}
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.graph == nil {
		return nil, ErrIndexEmpty
	}
	if len(query) != constants.DescriptorLength {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(query), constants.DescriptorLength)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	// Ask for extra candidates so excluded keys do not starve the result.
	want := k*HNSWSearchMultiplier + len(exclude)
	if k <= 0 {
		want = len(r.employees)
	}
	nodes := r.graph.Search(query, want)

	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := skip[n.Key]; ok {
			continue
		}
		emp, ok := r.employees[n.Key]
		if !ok {
			continue
		}
		d := facematch.EuclideanDistance(query, emp.Descriptor)
		if d == facematch.MaxDistance {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Distance:   d,
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].EmployeeID < neighbors[j].EmployeeID
	})
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Within returns indexed employees within maxDistance of the query,
// excluding the given IDs.
func (r *RosterIndex) Within(query []float32, maxDistance float64, limit int, exclude ...string) ([]Neighbor, error) {
	neighbors, err := r.Search(query, limit, exclude...)
	if err != nil {
		if errors.Is(err, ErrIndexEmpty) {
			return nil, nil
		}
		return nil, err
	}
	out := neighbors[:0]
	for _, n := range neighbors {
		if n.Distance <= maxDistance {
			out = append(out, n)
		}
	}
	return out, nil
}
