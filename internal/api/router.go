package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/ledger"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

type RouterConfig struct {
	Ledger  *ledger.Ledger
	Metrics *metrics.Collector
	Log     *logrus.Entry

	// Events is nil when the journal is disabled.
	Events       EventReader
	HealthChecks map[string]Pinger

	IdempotencyCacheSize int
	Now                  func() time.Time
	Location             *time.Location

	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.IdempotencyCacheSize <= 0 {
		cfg.IdempotencyCacheSize = 1024
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard().WithComponent("api")
	}

	idem, err := newIdempotencyCache(cfg.IdempotencyCacheSize)
	if err != nil {
		return nil, err
	}

	svc := cfg.Ledger
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(cfg.Metrics.HTTPMiddleware)
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.HealthChecks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Get("/snapshot", snapshotHandler(svc))
	r.Get("/events", recentEventsHandler(cfg.Events))
	r.Get("/config", getConfigHandler(svc))
	r.Put("/config", putConfigHandler(svc))

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", registerPatientHandler(svc))
		r.Get("/", listPatientsHandler(svc))
		r.Get("/{id}", getPatientHandler(svc))
		r.Get("/{id}/bookings", patientBookingsHandler(svc))
		r.Get("/{id}/no-shows", patientNoShowsHandler(svc))
	})

	r.Route("/professionals", func(r chi.Router) {
		r.Get("/", listProfessionalsHandler(svc))
		r.Get("/{id}", getProfessionalHandler(svc))
		r.Put("/{id}", putProfessionalHandler(svc))
		r.Put("/{id}/active", setProfessionalActiveHandler(svc))
	})

	r.Route("/facilities", func(r chi.Router) {
		r.Get("/", listFacilitiesHandler(svc))
		r.Get("/{id}", getFacilityHandler(svc))
		r.Put("/{id}", putFacilityHandler(svc))
		r.Put("/{id}/active", setFacilityActiveHandler(svc))
	})

	r.Route("/schedule-days", func(r chi.Router) {
		r.Post("/", createScheduleDayHandler(svc, cfg.Location))
		r.Get("/", listScheduleDaysHandler(svc))
		r.Get("/available", listAvailableScheduleDaysHandler(svc, cfg.Now, cfg.Location))
		r.Get("/{id}", getScheduleDayHandler(svc))
		r.Put("/{id}/block", blockScheduleDayHandler(svc))
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", createBookingHandler(svc, idem, cfg.Metrics.RecordBookingConflict))
		r.Get("/", listBookingsHandler(svc))
		r.Get("/{id}", getBookingHandler(svc))
		r.Post("/{id}/transition", transitionBookingHandler(svc))
		r.Post("/{id}/cancel", cancelBookingHandler(svc, cfg.Now))
	})

	r.Route("/waitlist", func(r chi.Router) {
		r.Post("/", addToWaitlistHandler(svc))
		r.Get("/", listWaitlistHandler(svc))
		r.Get("/{id}", getWaitlistEntryHandler(svc))
		r.Post("/{id}/contact", contactWaitlistEntryHandler(svc))
		r.Post("/{id}/transition", transitionWaitlistEntryHandler(svc))
	})

	return r, nil
}
