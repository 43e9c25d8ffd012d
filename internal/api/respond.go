package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, details string) {
	writeJSON(w, r, status, ErrorResponse{Error: code, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// handleLedgerError maps ledger error kinds onto HTTP statuses. The most specific
// sentinel wins, so entity-level not-found errors are checked before ErrNotFound.
func handleLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrPatientNotFound):
		writeError(w, r, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, ledger.ErrProfessionalNotFound):
		writeError(w, r, http.StatusNotFound, "professional_not_found", err.Error())
	case errors.Is(err, ledger.ErrFacilityNotFound):
		writeError(w, r, http.StatusNotFound, "facility_not_found", err.Error())
	case errors.Is(err, ledger.ErrScheduleDayNotFound):
		writeError(w, r, http.StatusNotFound, "schedule_day_not_found", err.Error())
	case errors.Is(err, ledger.ErrSlotNotFound):
		writeError(w, r, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, ledger.ErrBookingNotFound):
		writeError(w, r, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, ledger.ErrWaitlistEntryNotFound):
		writeError(w, r, http.StatusNotFound, "waitlist_entry_not_found", err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledger.ErrSlotUnavailable):
		writeError(w, r, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, ledger.ErrCancellationTooLate):
		writeError(w, r, http.StatusConflict, "cancellation_window_closed", err.Error())
	case errors.Is(err, ledger.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, ledger.ErrInvalidRequest):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, errIdempotencyKeyReused):
		writeError(w, r, http.StatusUnprocessableEntity, "idempotency_key_reused", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
