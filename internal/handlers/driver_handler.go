package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"toda-backend/internal/cache"
	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"
	"toda-backend/internal/repositories"
	"toda-backend/internal/services"
)

type DriverHandler struct {
	Repo         *repositories.DriverRepository
	LedgerRepo   *repositories.LedgerRepository
	Registration *services.RegistrationService
	Reconciler   *reconciler.Reconciler
}

func NewDriverHandler(
	repo *repositories.DriverRepository,
	ledgerRepo *repositories.LedgerRepository,
	registration *services.RegistrationService,
	rec *reconciler.Reconciler,
) *DriverHandler {
	return &DriverHandler{
		Repo:         repo,
		LedgerRepo:   ledgerRepo,
		Registration: registration,
		Reconciler:   rec,
	}
}

// RegisterDriver runs the full multi-system registration flow.
func (h *DriverHandler) RegisterDriver(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	driver, err := h.Registration.RegisterDriver(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	cache.InvalidateDriverCaches(r.Context())
	writeJSON(w, http.StatusCreated, driver)
}

func (h *DriverHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.DriverFilter{
		BarangayID: q.Get("barangay"),
		Search:     q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := q.Get("in_queue"); v != "" {
		b := v == "true"
		filter.InQueue = &b
	}

	drivers, err := h.Repo.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

func (h *DriverHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	driver, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}

func (h *DriverHandler) UpdateDriver(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.UpdateDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	driver, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}

	driver.Name = req.Name
	driver.OperatorName = req.OperatorName
	driver.BarangayID = req.BarangayID
	driver.TricycleNumber = req.TricycleNumber
	driver.PhoneNumber = req.PhoneNumber
	driver.PlateNumberText = req.PlateNumberText

	if err := h.Repo.Update(r.Context(), driver); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cache.InvalidateDriverCaches(r.Context())
	writeJSON(w, http.StatusOK, driver)
}

func (h *DriverHandler) DeleteDriver(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	driver, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}

	if err := h.Registration.DeleteDriver(r.Context(), driver); err != nil {
		writeError(w, err)
		return
	}

	cache.InvalidateDriverCaches(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Driver deleted"})
}

// Recharge applies a cash top-up through the ledger.
func (h *DriverHandler) Recharge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	desc := req.Description
	if desc == "" {
		desc = "admin recharge"
	}

	balance, err := h.Reconciler.ApplyBalanceEvent(r.Context(), id, reconciler.KindRecharge, req.Amount, desc)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"driver_id": id,
		"balance":   balance,
	})
}

// RechargeByEmail applies a cash top-up addressed by login email, the way
// the admin recharge form identifies drivers.
func (h *DriverHandler) RechargeByEmail(w http.ResponseWriter, r *http.Request) {
	var req models.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		writeError(w, &reconciler.ValidationError{Field: "email", Reason: "must not be empty"})
		return
	}

	driver, err := h.Repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, &reconciler.NotFoundError{Kind: "driver", ID: req.Email})
		return
	}

	desc := req.Description
	if desc == "" {
		desc = "admin recharge"
	}

	balance, err := h.Reconciler.ApplyBalanceEvent(r.Context(), driver.ID, reconciler.KindRecharge, req.Amount, desc)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"driver_id": driver.ID,
		"balance":   balance,
	})
}

// Ledger returns one driver's full billing ledger.
func (h *DriverHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entries, err := h.LedgerRepo.ForDriver(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
