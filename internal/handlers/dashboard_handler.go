package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"toda-backend/internal/cache"
	"toda-backend/internal/models"
	"toda-backend/internal/repositories"
	"toda-backend/internal/services"
)

const overviewTTL = 30 * time.Second

type DashboardHandler struct {
	Counters   *services.CounterService
	DriverRepo *repositories.DriverRepository
	LedgerRepo *repositories.LedgerRepository
}

func NewDashboardHandler(
	counters *services.CounterService,
	driverRepo *repositories.DriverRepository,
	ledgerRepo *repositories.LedgerRepository,
) *DashboardHandler {
	return &DashboardHandler{
		Counters:   counters,
		DriverRepo: driverRepo,
		LedgerRepo: ledgerRepo,
	}
}

// Overview serves the dashboard landing payload, cached briefly in Redis.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if data, ok := cache.GetCached(r.Context(), cache.OverviewKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	overview, err := h.Counters.Overview(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(overview)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache.SetCached(r.Context(), cache.OverviewKey, payload, overviewTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// RecentActivity returns the latest ledger entries for the activity feed.
func (h *DashboardHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	entries, err := h.LedgerRepo.List(r.Context(), models.LedgerFilter{Limit: limit})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Queue returns one barangay's live queue in arrival order.
func (h *DashboardHandler) Queue(w http.ResponseWriter, r *http.Request) {
	barangayID := mux.Vars(r)["barangay"]

	cacheKey := cache.QueueKeyFmt + barangayID
	if data, ok := cache.GetCached(r.Context(), cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	queue, err := h.DriverRepo.QueueForBarangay(r.Context(), barangayID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if queue == nil {
		queue = []*models.QueuedDriver{}
	}

	payload, err := json.Marshal(queue)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache.SetCached(r.Context(), cacheKey, payload, 10*time.Second)

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// RefreshCounters forces a projection repair, for the dashboard's
// refresh button.
func (h *DashboardHandler) RefreshCounters(w http.ResponseWriter, r *http.Request) {
	h.Counters.RefreshAll(r.Context())
	cache.InvalidateDashboardCaches(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Counters refreshed"})
}
