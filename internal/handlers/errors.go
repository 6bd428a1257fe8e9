package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"toda-backend/internal/reconciler"
	"toda-backend/internal/services"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the application error taxonomy to HTTP statuses. The
// scanner and the dashboard both rely on conflicts being 409 and
// insufficient balance being 402.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation   *reconciler.ValidationError
		notFound     *reconciler.NotFoundError
		alreadyQ     *reconciler.AlreadyQueuedError
		notQ         *reconciler.NotQueuedError
		insufficient *reconciler.InsufficientBalanceError
		partial      *services.PartialFailureError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Error(), "kind": "validation"})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error(), "kind": "not_found"})
	case errors.As(err, &alreadyQ):
		writeJSON(w, http.StatusConflict, map[string]string{"error": alreadyQ.Error(), "kind": "already_queued"})
	case errors.As(err, &notQ):
		writeJSON(w, http.StatusConflict, map[string]string{"error": notQ.Error(), "kind": "not_queued"})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":   insufficient.Error(),
			"kind":    "insufficient_balance",
			"balance": insufficient.Balance,
		})
	case errors.As(err, &partial):
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   partial.Error(),
			"kind":    "partial_failure",
			"orphans": partial.Orphans,
		})
	case reconciler.IsRetryable(err):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage temporarily unavailable", "kind": "storage"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
