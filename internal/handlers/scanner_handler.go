package handlers

import (
	"encoding/json"
	"net/http"

	"toda-backend/internal/cache"
	"toda-backend/internal/metrics"
	"toda-backend/internal/reconciler"
	"toda-backend/internal/services"
)

// QueueEventRequest is the payload sent by the entrance scanner.
type QueueEventRequest struct {
	DriverID   string `json:"driver_id"`
	BarangayID string `json:"barangay_id"`
	Direction  string `json:"direction"` // enter or exit
}

type ScannerHandler struct {
	Service *services.ScannerService
}

func NewScannerHandler(service *services.ScannerService) *ScannerHandler {
	return &ScannerHandler{Service: service}
}

// QueueEvent applies one scanner tap. Input is untrusted; the reconciler
// validates everything and the handler only translates errors.
func (h *ScannerHandler) QueueEvent(w http.ResponseWriter, r *http.Request) {
	var req QueueEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	direction := reconciler.Direction(req.Direction)
	result, err := h.Service.RecordTap(r.Context(), req.DriverID, req.BarangayID, direction)
	if err != nil {
		metrics.QueueEventsTotal.WithLabelValues(req.Direction, "rejected").Inc()
		writeError(w, err)
		return
	}

	metrics.QueueEventsTotal.WithLabelValues(req.Direction, "applied").Inc()
	cache.InvalidateDashboardCaches(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// TriggerBuzzer pings the entrance device, for the dashboard's manual
// test button.
func (h *ScannerHandler) TriggerBuzzer(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.TriggerBuzzer(); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "Failed to trigger buzzer"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Buzzer triggered"})
}
