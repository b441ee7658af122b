package attendance

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// rosterSnapshot is the enrolled roster as read at one point in time.
type rosterSnapshot struct {
	employees  []database.StoredEmployee
	candidates []facematch.Candidate
	byID       map[string]int

	indexMu sync.Mutex
	index   *database.RosterIndex
}

func newRosterSnapshot(employees []database.StoredEmployee) *rosterSnapshot {
	s := &rosterSnapshot{
		employees:  employees,
		candidates: make([]facematch.Candidate, len(employees)),
		byID:       make(map[string]int, len(employees)),
	}
	for i := range employees {
		s.candidates[i] = facematch.Candidate{
			EmployeeID: employees[i].ID,
			Name:       employees[i].Name,
			Descriptor: employees[i].Descriptor,
		}
		s.byID[employees[i].ID] = i
	}
	return s
}

// employee returns the enrolled employee with the given ID.
func (s *rosterSnapshot) employee(id string) (database.StoredEmployee, bool) {
	i, ok := s.byID[id]
	if !ok {
		return database.StoredEmployee{}, false
	}
	return s.employees[i], true
}

// similarityIndex builds the HNSW index on first use.
func (s *rosterSnapshot) similarityIndex() *database.RosterIndex {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.index == nil {
		s.index = database.NewRosterIndex()
		s.index.Build(s.employees)
	}
	return s.index
}

// with returns a copy of the snapshot in which emp replaces the entry with
// the same ID, kept in ID order. An employee without a descriptor is dropped.
// A similarity index that was already built moves to the copy and is
// updated in place.
func (s *rosterSnapshot) with(emp database.StoredEmployee) *rosterSnapshot {
	employees := make([]database.StoredEmployee, 0, len(s.employees)+1)
	for _, e := range s.employees {
		if e.ID != emp.ID {
			employees = append(employees, e)
		}
	}
	if emp.Enrolled() {
		i := sort.Search(len(employees), func(i int) bool { return employees[i].ID >= emp.ID })
		employees = slices.Insert(employees, i, emp)
	}
	next := newRosterSnapshot(employees)

	s.indexMu.Lock()
	idx := s.index
	s.indexMu.Unlock()
	if idx != nil {
		if emp.Enrolled() {
			idx.Put(emp)
		} else {
			idx.Remove(emp.ID)
		}
		next.index = idx
	}
	return next
}

// rosterCache holds the enrolled roster with expiry. A zero TTL disables caching.
// Every write bumps generation, so a load that read the store before the
// write never caches its result.
type rosterCache struct {
	mu         sync.RWMutex
	data       *rosterSnapshot
	expiresAt  time.Time
	generation uint64
	ttl        time.Duration
	now        func() time.Time
}

func (c *rosterCache) get() (*rosterSnapshot, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || c.ttl <= 0 || !c.now().Before(c.expiresAt) {
		return nil, c.generation, false
	}
	return c.data, c.generation, true
}

// set caches data unless the roster changed since generation was read.
func (c *rosterCache) set(data *rosterSnapshot, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return
	}
	c.data = data
	c.expiresAt = c.now().Add(c.ttl)
}

func (c *rosterCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.data = nil
}

// update applies a single-employee change to the cached snapshot without
// rereading the store. The expiry is left unchanged.
func (c *rosterCache) update(emp database.StoredEmployee) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.data == nil {
		return
	}
	c.data = c.data.with(emp)
}

// load returns the cached snapshot or reads a fresh one from the store.
func (c *rosterCache) load(ctx context.Context, employees database.EmployeeReader) (*rosterSnapshot, error) {
	snap, generation, ok := c.get()
	if ok {
		return snap, nil
	}
	enrolled, err := employees.ListEnrolled(ctx)
	if err != nil {
		return nil, err
	}
	snap = newRosterSnapshot(enrolled)
	c.set(snap, generation)
	return snap, nil
}
