package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/middleware"
	"github.com/ukydev/fleet-twin/internal/models"
	"github.com/ukydev/fleet-twin/internal/unit"
)

// FleetView is the read side of the fleet. *fleet.Reconciler implements it.
type FleetView interface {
	LatestSnapshot() models.FleetSnapshot
	Units() []unit.State
}

// StatusHandler serves the read-only fleet status API
type StatusHandler struct {
	fleet FleetView
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(fleet FleetView) *StatusHandler {
	return &StatusHandler{fleet: fleet}
}

// Health reports liveness and the number of running units
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"units":  len(h.fleet.Units()),
	})
}

// FleetStatus returns the latest per-status tally
func (h *StatusHandler) FleetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.fleet.LatestSnapshot())
}

// Units returns every running unit, or one unit for /api/fleet/units/{id}
func (h *StatusHandler) Units(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	states := h.fleet.Units()
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/fleet/units"), "/")
	if id == "" {
		writeJSON(w, http.StatusOK, states)
		return
	}

	for _, s := range states {
		if s.ID == id {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	http.Error(w, "Unit not found", http.StatusNotFound)
}

// Routes wires the status API. /health is public; the fleet endpoints need a
// viewer token and are rate limited per client.
func (h *StatusHandler) Routes(authMW *middleware.AuthMiddleware, limiter *middleware.RateLimitMiddleware) http.Handler {
	viewer := func(fn http.HandlerFunc) http.Handler {
		return limiter.RateLimit(120, time.Minute)(authMW.RequireRole(models.RoleViewer)(fn))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/api/fleet/status", viewer(h.FleetStatus))
	mux.Handle("/api/fleet/units", viewer(h.Units))
	mux.Handle("/api/fleet/units/", viewer(h.Units))
	return middleware.RequestLogger(authMW.Authenticate(mux))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
