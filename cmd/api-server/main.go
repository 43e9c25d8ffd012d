package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/journal"
	"github.com/hackgods/clinic-scheduling/internal/ledger"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/seed"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").WithError(err).Fatal("config load error")
	}

	logg := logger.New(cfg.LogLevel, cfg.LogFormat)
	log := logg.WithComponent("api-server")
	log.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"http_port": cfg.HTTPPort,
		"version":   version,
	}).Info("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	sinks := []events.Sink{collector}
	healthChecks := map[string]api.Pinger{}

	var eventReader api.EventReader
	if cfg.JournalEnabled() {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := journal.Connect(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.WithError(err).Fatal("postgres connection error")
		}
		defer pool.Close()

		j := journal.NewPgJournal(pool)
		if err := j.EnsureSchema(rootCtx); err != nil {
			log.WithError(err).Fatal("journal schema error")
		}
		sinks = append(sinks, j)
		eventReader = j
		healthChecks["postgres"] = pool.Ping
		log.Info("connected to Postgres, event journal enabled")
	} else {
		log.Info("POSTGRES_DSN not set, event journal disabled")
	}

	// The notifier reads the live ledger config. The ledger is built further down, after the dispatcher.
	var l *ledger.Ledger
	if cfg.NotificationsEnabled() {
		rdb, err := notify.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Fatal("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Warn("error closing redis")
			}
		}()
		sinks = append(sinks, notify.NewNotifier(rdb, ledgerConfig(func() *ledger.Ledger { return l }),
			cfg.NotificationDedupTTL, logg.WithComponent("notify")))
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("connected to Redis, notifications enabled")
	} else {
		log.Info("REDIS_URL/REDIS_ADDR not set, notifications disabled")
	}

	dispatcher := events.NewDispatcher(cfg.EventBuffer, logg.WithComponent("events"), sinks,
		events.WithDropHook(collector.RecordDroppedEvent))

	l = ledger.New(cfg.Ledger,
		ledger.WithPublisher(dispatcher),
		ledger.WithLogger(logg.WithComponent("ledger")),
	)

	if cfg.SeedDemo {
		if _, err := seed.Baseline(l, time.Now()); err != nil {
			log.WithError(err).Fatal("demo seed error")
		}
		log.Info("demo clinic loaded")
	}
	if cfg.SeedFakePatients > 0 {
		f := gofakeit.New(0)
		for _, p := range seed.FakePatients(f, cfg.SeedFakePatients) {
			l.RegisterPatient(p)
		}
		log.WithField("count", cfg.SeedFakePatients).Info("fake patients registered")
	}

	dispatchDone := make(chan struct{})
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	go func() {
		dispatcher.Run(dispatchCtx)
		close(dispatchDone)
	}()

	worker := reminder.NewWorker(l, time.Now, logg.WithComponent("reminder"))
	workerDone := make(chan struct{})
	go func() {
		worker.Run(rootCtx, cfg.ReminderInterval)
		close(workerDone)
	}()

	router, err := api.NewRouter(api.RouterConfig{
		Ledger:               l,
		Metrics:              collector,
		Log:                  logg.WithComponent("http"),
		Events:               eventReader,
		HealthChecks:         healthChecks,
		IdempotencyCacheSize: cfg.IdempotencyCacheSize,
		Env:                  cfg.Env,
		Version:              version,
	})
	if err != nil {
		log.WithError(err).Fatal("router setup error")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown did not complete cleanly")
	}

	<-workerDone
	stopDispatch()
	select {
	case <-dispatchDone:
	case <-shutdownCtx.Done():
		log.Warn("event dispatcher did not drain before the shutdown timeout")
	}

	if dropped := dispatcher.Dropped(); dropped > 0 {
		log.WithField("dropped", dropped).Warn("events were dropped during this run")
	}
	log.Info("api-server stopped")
}

// ledgerConfig defers the lookup because the ledger is built after its sinks.
type ledgerConfig func() *ledger.Ledger

func (f ledgerConfig) GetConfig() ledger.Config {
	if l := f(); l != nil {
		return l.GetConfig()
	}
	return ledger.DefaultConfig()
}
