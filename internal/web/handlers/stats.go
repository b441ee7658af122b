package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const statsCacheTTL = 30 * time.Second

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	cache statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{}
}

// InvalidateCache clears the cached stats so the next request fetches fresh data
func (h *StatsHandler) InvalidateCache() {
	if h == nil {
		return
	}
	h.cache.invalidate()
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	TotalEmployees    int    `json:"total_employees"`
	EnrolledEmployees int    `json:"enrolled_employees"`
	TotalTimeLogs     int    `json:"total_time_logs"`
	Backend           string `json:"backend"`
}

// Get returns roster and time-log counts from the active backend
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	ctx := r.Context()
	empRepo, err := database.GetEmployeeReader(ctx)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	logRepo, err := database.GetTimeLogReader(ctx)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	total, enrolled, err := empRepo.Count(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	events, err := logRepo.Count(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	stats := &StatsResponse{
		TotalEmployees:    total,
		EnrolledEmployees: enrolled,
		TotalTimeLogs:     events,
		Backend:           database.BackendName(),
	}

	h.cache.set(stats)
	respondJSON(w, http.StatusOK, stats)
}
