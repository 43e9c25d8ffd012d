package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

// EventReader serves the audit trail. *journal.PgJournal implements it.
type EventReader interface {
	Recent(ctx context.Context, limit int) ([]events.Event, error)
}

func getConfigHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, svc.GetConfig())
	}
}

// putConfigHandler replaces the whole configuration; omitted fields become zero values.
func putConfigHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg ledger.Config
		if !decodeJSON(w, r, &cfg) {
			return
		}
		if cfg.MinLeadDays < 0 || cfg.MaxLeadDays < cfg.MinLeadDays {
			writeError(w, r, http.StatusBadRequest, "invalid_config", "lead days must satisfy 0 <= min_lead_days <= max_lead_days")
			return
		}
		if cfg.CancellationMinHours < 0 || cfg.MaxNoShows < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_config", "cancellation_min_hours and max_no_shows must not be negative")
			return
		}

		svc.SetConfig(cfg)
		writeJSON(w, r, http.StatusOK, svc.GetConfig())
	}
}

func snapshotHandler(svc *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, toSnapshotResponse(svc.Snapshot()))
	}
}

func recentEventsHandler(reader EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			writeError(w, r, http.StatusServiceUnavailable, "journal_disabled", "POSTGRES_DSN is not configured")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			limit = n
		}

		evs, err := reader.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "journal_error", err.Error())
			return
		}
		writeJSON(w, r, http.StatusOK, EventsResponse{Events: evs})
	}
}
