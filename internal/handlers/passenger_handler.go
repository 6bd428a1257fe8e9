package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"toda-backend/internal/cache"
	"toda-backend/internal/identity"
	"toda-backend/internal/models"
	"toda-backend/internal/repositories"
)

type PassengerHandler struct {
	Repo     *repositories.PassengerRepository
	Provider identity.Provider
}

func NewPassengerHandler(repo *repositories.PassengerRepository, provider identity.Provider) *PassengerHandler {
	return &PassengerHandler{Repo: repo, Provider: provider}
}

func (h *PassengerHandler) ListPassengers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	passengers, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, passengers)
}

func (h *PassengerHandler) GetPassenger(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	passenger, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Passenger not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, passenger)
}

// CreatePassenger registers a passenger account. Identity creation comes
// first; the local row uses the provider's account ID, falling back to a
// generated ID when no password (and so no login account) was requested.
func (h *PassengerHandler) CreatePassenger(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePassengerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" {
		http.Error(w, "Name and email are required", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	if req.Password != "" {
		accountID, err := h.Provider.CreateAccount(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		id = accountID
	}

	passenger := &models.Passenger{
		ID:          id,
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	}
	if err := h.Repo.Create(r.Context(), passenger); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cache.InvalidatePassengerCaches(r.Context())
	writeJSON(w, http.StatusCreated, passenger)
}

func (h *PassengerHandler) DeletePassenger(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.Repo.Get(r.Context(), id); err != nil {
		http.Error(w, "Passenger not found", http.StatusNotFound)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Best effort; the account may never have existed.
	_ = h.Provider.DeleteAccount(r.Context(), id)

	cache.InvalidatePassengerCaches(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Passenger deleted"})
}
