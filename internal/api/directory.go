package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

func registerPatientHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p ledger.Patient
		if !decodeJSON(w, r, &p) {
			return
		}
		writeJSON(w, r, http.StatusCreated, svc.RegisterPatient(p))
	}
}

func listPatientsHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, svc.ListPatients())
	}
}

func getPatientHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetPatient(chi.URLParam(r, "id"))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, p)
	}
}

func patientBookingsHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, toBookingResponses(svc.ListBookingsByPatient(chi.URLParam(r, "id"))))
	}
}

func patientNoShowsHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		writeJSON(w, r, http.StatusOK, NoShowResponse{
			PatientID: id,
			NoShows:   svc.NoShowCount(id),
			Flagged:   svc.IsPatientFlagged(id),
		})
	}
}

func putProfessionalHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p ledger.Professional
		if !decodeJSON(w, r, &p) {
			return
		}
		p.ID = chi.URLParam(r, "id")

		if err := svc.RegisterProfessional(p); err != nil {
			handleLedgerError(w, r, err)
			return
		}
		stored, err := svc.GetProfessional(p.ID)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, stored)
	}
}

func listProfessionalsHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, svc.ListProfessionals())
	}
}

func getProfessionalHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProfessional(chi.URLParam(r, "id"))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, p)
	}
}

func setProfessionalActiveHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, ok := decodeActive(w, r)
		if !ok {
			return
		}
		p, err := svc.SetProfessionalActive(chi.URLParam(r, "id"), active)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, p)
	}
}

func putFacilityHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f ledger.Facility
		if !decodeJSON(w, r, &f) {
			return
		}
		f.ID = chi.URLParam(r, "id")

		if err := svc.RegisterFacility(f); err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, f)
	}
}

func listFacilitiesHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, svc.ListFacilities())
	}
}

func getFacilityHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := svc.GetFacility(chi.URLParam(r, "id"))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, f)
	}
}

func setFacilityActiveHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, ok := decodeActive(w, r)
		if !ok {
			return
		}
		f, err := svc.SetFacilityActive(chi.URLParam(r, "id"), active)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, f)
	}
}

func decodeActive(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var req ActiveRequest
	if !decodeJSON(w, r, &req) {
		return false, false
	}
	if req.Active == nil {
		writeError(w, r, http.StatusBadRequest, "missing_active", "active is required")
		return false, false
	}
	return *req.Active, true
}
