package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"toda-backend/internal/models"
	"toda-backend/internal/repositories"
)

type BarangayHandler struct {
	Repo *repositories.BarangayRepository
}

func NewBarangayHandler(repo *repositories.BarangayRepository) *BarangayHandler {
	return &BarangayHandler{Repo: repo}
}

func (h *BarangayHandler) ListBarangays(w http.ResponseWriter, r *http.Request) {
	barangays, err := h.Repo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, barangays)
}

func (h *BarangayHandler) GetBarangay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	barangay, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Barangay not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, barangay)
}

// UpdateTerminalFee sets a new fee in centavos. Future entrance taps
// charge the new value; past ledger entries are untouched.
func (h *BarangayHandler) UpdateTerminalFee(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.UpdateTerminalFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TerminalFee <= 0 {
		http.Error(w, "Terminal fee must be a positive number of centavos", http.StatusBadRequest)
		return
	}

	if _, err := h.Repo.Get(r.Context(), id); err != nil {
		http.Error(w, "Barangay not found", http.StatusNotFound)
		return
	}

	if err := h.Repo.UpdateTerminalFee(r.Context(), id, req.TerminalFee); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	barangay, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, barangay)
}
