// Package handlers exposes read-only diagnostics over the trade
// execution engine: queue depth, open trade count, and registered
// scheduler tasks. Grounded on teacher's handler shape (constructor
// taking the dependency it reports on, common.go's response envelopes)
// but scoped down to the facade's own state rather than a database.
package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"optionx/internal/facade"
	"optionx/internal/scheduler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DiagnosticsHandler reports live engine state for operators.
type DiagnosticsHandler struct {
	facade *facade.Facade
	sched  *scheduler.Scheduler
}

// NewDiagnosticsHandler wires a handler to the running facade/scheduler.
func NewDiagnosticsHandler(f *facade.Facade, s *scheduler.Scheduler) *DiagnosticsHandler {
	return &DiagnosticsHandler{facade: f, sched: s}
}

// queueStatus is the JSON shape returned by GET /api/v1/queue.
type queueStatus struct {
	OpenTrades   int64 `json:"open_trades"`
	PendingCount int   `json:"pending_count"`
}

// GetQueueStatus reports the current admission-queue depth and open
// trade count.
func (h *DiagnosticsHandler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	status := queueStatus{}
	if h.facade != nil {
		q := h.facade.Queue()
		status.OpenTrades = q.OpenTrades()
		status.PendingCount = q.PendingCount()
	}
	writeJSON(w, http.StatusOK, status)
}

// GetScheduledTasks reports the names of all registered scheduler tasks.
func (h *DiagnosticsHandler) GetScheduledTasks(w http.ResponseWriter, r *http.Request) {
	var names []string
	if h.sched != nil {
		names = h.sched.TaskNames()
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: names})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
