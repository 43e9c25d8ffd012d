package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), loc)
}

func createScheduleDayHandler(svc *ledger.Ledger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateScheduleDayRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		date, err := parseDate(req.Date, loc)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		day, err := svc.CreateScheduleDay(ledger.CreateScheduleDayRequest{
			ProfessionalID: req.ProfessionalID,
			FacilityID:     req.FacilityID,
			Specialty:      req.Specialty,
			Date:           date,
			Quota:          req.Quota,
		})
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, toScheduleDayResponse(day))
	}
}

func listScheduleDaysHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, toScheduleDayResponses(svc.ListScheduleDays()))
	}
}

// listAvailableScheduleDaysHandler serves ?specialty=&from=YYYY-MM-DD; from defaults to today.
func listAvailableScheduleDaysHandler(svc *ledger.Ledger, now func() time.Time, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialty := r.URL.Query().Get("specialty")
		if strings.TrimSpace(specialty) == "" {
			writeError(w, r, http.StatusBadRequest, "missing_specialty", "specialty query parameter is required")
			return
		}

		from := now().In(loc)
		if raw := r.URL.Query().Get("from"); raw != "" {
			parsed, err := parseDate(raw, loc)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
				return
			}
			from = parsed
		}

		writeJSON(w, r, http.StatusOK, toScheduleDayResponses(svc.ListAvailableScheduleDays(specialty, from)))
	}
}

func getScheduleDayHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := svc.GetScheduleDay(chi.URLParam(r, "id"))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toScheduleDayResponse(day))
	}
}

func blockScheduleDayHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		day, err := svc.SetScheduleDayBlocked(chi.URLParam(r, "id"), req.Blocked, req.Reason)
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toScheduleDayResponse(day))
	}
}

// createBookingHandler books a slot. With an Idempotency-Key header a retried request
// gets the original booking back and an Idempotent-Replayed header.
func createBookingHandler(svc *ledger.Ledger, idem *idempotencyCache, onConflict func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		book := func() (BookingResponse, error) {
			b, err := svc.BookSlot(req.toLedger())
			if err != nil {
				return BookingResponse{}, err
			}
			return toBookingResponse(b), nil
		}

		var (
			resp     BookingResponse
			replayed bool
			err      error
		)
		if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" {
			resp, replayed, err = idem.do(key, req.fingerprint(), book)
		} else {
			resp, err = book()
		}
		if err != nil {
			if errors.Is(err, ledger.ErrSlotUnavailable) && onConflict != nil {
				onConflict()
			}
			handleLedgerError(w, r, err)
			return
		}

		status := http.StatusCreated
		if replayed {
			w.Header().Set("Idempotent-Replayed", "true")
			status = http.StatusOK
		}
		writeJSON(w, r, status, resp)
	}
}

func listBookingsHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if patientID := r.URL.Query().Get("patient_id"); patientID != "" {
			writeJSON(w, r, http.StatusOK, toBookingResponses(svc.ListBookingsByPatient(patientID)))
			return
		}
		writeJSON(w, r, http.StatusOK, toBookingResponses(svc.ListBookings()))
	}
}

func getBookingHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.GetBooking(chi.URLParam(r, "id"))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toBookingResponse(b))
	}
}

func transitionBookingHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		b, err := svc.TransitionBooking(chi.URLParam(r, "id"), ledger.BookingStatus(req.Status))
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(svc *ledger.Ledger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.CancelBooking(chi.URLParam(r, "id"), now())
		if err != nil {
			handleLedgerError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toBookingResponse(b))
	}
}
