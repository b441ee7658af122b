package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	service *attendance.Service
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, svc *attendance.Service) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		service: svc,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	MatchThreshold   float64        `json:"match_threshold"`
	DescriptorLength int            `json:"descriptor_length"`
	RegularDayHours  float64        `json:"regular_day_hours"`
	Timezone         string         `json:"timezone"`
	Backend          string         `json:"backend"`
	Pairing          PolicyResponse `json:"pairing"`
}

// PolicyResponse is the pairing policy with durations in seconds
type PolicyResponse struct {
	CheckInLookback               float64 `json:"checkin_lookback_seconds"`
	CheckOutLookback              float64 `json:"checkout_lookback_seconds"`
	CheckOutRequiresCheckInWithin float64 `json:"checkout_requires_checkin_within_seconds"`
	MinCheckInInterval            float64 `json:"min_checkin_interval_seconds"`
	MinCheckOutInterval           float64 `json:"min_checkout_interval_seconds"`
}

// Get returns the active matching and pairing configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	policy := h.service.Policy()

	response := ConfigResponse{
		MatchThreshold:   h.service.Threshold(),
		DescriptorLength: constants.DescriptorLength,
		RegularDayHours:  h.service.RegularDayHours(),
		Timezone:         h.service.Location().String(),
		Backend:          h.config.Database.Driver,
		Pairing: PolicyResponse{
			CheckInLookback:               policy.CheckInLookback.Seconds(),
			CheckOutLookback:              policy.CheckOutLookback.Seconds(),
			CheckOutRequiresCheckInWithin: policy.CheckOutRequiresCheckInWithin.Seconds(),
			MinCheckInInterval:            policy.MinCheckInInterval.Seconds(),
			MinCheckOutInterval:           policy.MinCheckOutInterval.Seconds(),
		},
	}

	respondJSON(w, http.StatusOK, response)
}
