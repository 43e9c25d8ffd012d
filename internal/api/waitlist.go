package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

func addToWaitlistHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry ledger.WaitlistEntry
		if !decodeJSON(w, r, &entry) {
			return
		}

		stored, err := svc.AddToWaitlist(entry)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, stored)
	}
}

// listWaitlistHandler returns the ranked queue when ?specialty= is given, else every entry.
func listWaitlistHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if specialty := r.URL.Query().Get("specialty"); specialty != "" {
			writeJSON(w, r, http.StatusOK, svc.ListWaitlistBySpecialty(specialty))
			return
		}
		writeJSON(w, r, http.StatusOK, svc.ListWaitlist())
	}
}

func getWaitlistEntryHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := svc.GetWaitlistEntry(chi.URLParam(r, "id"))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, entry)
	}
}

func contactWaitlistEntryHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := svc.RecordContactAttempt(chi.URLParam(r, "id"))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, entry)
	}
}

func transitionWaitlistEntryHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		entry, err := svc.TransitionWaitlistEntry(chi.URLParam(r, "id"), ledger.WaitlistStatus(req.Status))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, entry)
	}
}
