package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthHandler reports process liveness plus a host resource snapshot.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// Get handles the health check request.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	system := map[string]interface{}{}

	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		system["memoryUsedPercent"] = vm.UsedPercent
	} else {
		log.Debug().Err(err).Msg("Could not read memory stats")
	}
	if avg, err := load.AvgWithContext(r.Context()); err == nil {
		system["load1"] = avg.Load1
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "OK",
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
		"system":  system,
	})
}
