package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/ledger"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/seed"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	Specialties  []string
	Seed         uint64
}

type DataPool struct {
	Patients []string
	Days     []api.ScheduleDayResponse

	mu       sync.RWMutex
	bookings []string
}

func (dp *DataPool) AddBooking(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, id)
}

func (dp *DataPool) RandomBooking(f *gofakeit.Faker) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return "", false
	}
	return dp.bookings[f.Number(0, len(dp.bookings)-1)], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking       OperationMetrics
	Cancel        OperationMetrics
	ReadByID      OperationMetrics
	ListByPatient OperationMetrics
	Available     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	log     *logrus.Entry
}

func main() {
	_ = godotenv.Load()

	log := logger.New(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "text")).WithComponent("simulate")
	log.Info("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.WithFields(logrus.Fields{
		"duration": cfg.Duration.String(),
		"workers":  cfg.Workers,
		"booking":  cfg.BookingRatio,
		"cancel":   cfg.CancelRatio,
		"read":     cfg.ReadRatio,
	}).Info("simulation config")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := sim.loadDataPool(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("load data pool")
	}
	sim.pool = pool
	log.WithFields(logrus.Fields{
		"patients":      len(pool.Patients),
		"schedule_days": len(pool.Days),
	}).Info("data pool loaded")

	sim.Run()
	sim.PrintReport()

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelVerify()
	if !sim.Verify(verifyCtx) {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		Specialties:  seed.Specialties,
		Seed:         uint64(getInt("SIM_RANDOM_SEED", 0)),
	}
	if raw := os.Getenv("SIM_SPECIALTIES"); raw != "" {
		cfg.Specialties = strings.Split(raw, ",")
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if len(cfg.Specialties) == 0 {
		return fmt.Errorf("SIM_SPECIALTIES must not be empty")
	}
	return nil
}

func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	pool := &DataPool{}

	var patients []ledger.Patient
	if _, err := s.do(ctx, http.MethodGet, "/patients", nil, nil, &patients); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for _, p := range patients {
		pool.Patients = append(pool.Patients, p.ID)
	}

	for _, specialty := range s.config.Specialties {
		var days []api.ScheduleDayResponse
		path := "/schedule-days/available?specialty=" + url.QueryEscape(strings.TrimSpace(specialty))
		if _, err := s.do(ctx, http.MethodGet, path, nil, nil, &days); err != nil {
			return nil, fmt.Errorf("load schedule days for %q: %w", specialty, err)
		}
		pool.Days = append(pool.Days, days...)
	}

	if len(pool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded; run cmd/seed first")
	}
	if len(pool.Days) == 0 {
		return nil, fmt.Errorf("no available schedule days loaded")
	}
	return pool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.WithField("workers", s.config.Workers).Info("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	f := gofakeit.New(s.config.Seed + uint64(workerID) + 1)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := f.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, f)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, f)
		default:
			switch f.Number(0, 2) {
			case 0:
				s.doReadByID(ctx, f)
			case 1:
				s.doListByPatient(ctx, f)
			case 2:
				s.doListAvailable(ctx, f)
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, f *gofakeit.Faker) {
	day := s.pool.Days[f.Number(0, len(s.pool.Days)-1)]
	if len(day.Slots) == 0 {
		return
	}

	req := api.CreateBookingRequest{
		PatientID:     s.pool.Patients[f.Number(0, len(s.pool.Patients)-1)],
		ScheduleDayID: day.ID,
		Time:          day.Slots[f.Number(0, len(day.Slots)-1)].Time,
		Type:          "consulta",
	}
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}

	start := time.Now()
	var created api.BookingResponse
	status, err := s.do(ctx, http.MethodPost, "/bookings", headers, req, &created)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	if success && created.ID != "" {
		s.pool.AddBooking(created.ID)
	}
	s.metrics.Booking.Record(latency, success, status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, f *gofakeit.Faker) {
	id, ok := s.pool.RandomBooking(f)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.do(ctx, http.MethodPost, "/bookings/"+id+"/cancel", nil, nil, nil)
	latency := time.Since(start)

	// 409 covers bookings that are already cancelled and closed cancellation windows.
	s.metrics.Cancel.Record(latency, err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doReadByID(ctx context.Context, f *gofakeit.Faker) {
	id, ok := s.pool.RandomBooking(f)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.do(ctx, http.MethodGet, "/bookings/"+id, nil, nil, nil)
	s.metrics.ReadByID.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doListByPatient(ctx context.Context, f *gofakeit.Faker) {
	patientID := s.pool.Patients[f.Number(0, len(s.pool.Patients)-1)]

	start := time.Now()
	status, err := s.do(ctx, http.MethodGet, "/patients/"+patientID+"/bookings", nil, nil, nil)
	s.metrics.ListByPatient.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doListAvailable(ctx context.Context, f *gofakeit.Faker) {
	specialty := s.config.Specialties[f.Number(0, len(s.config.Specialties)-1)]
	path := "/schedule-days/available?specialty=" + url.QueryEscape(strings.TrimSpace(specialty))

	start := time.Now()
	status, err := s.do(ctx, http.MethodGet, path, nil, nil, nil)
	s.metrics.Available.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

// Verify fetches every booking and reports slots held by more than one live booking.
func (s *Simulator) Verify(ctx context.Context) bool {
	var bookings []api.BookingResponse
	if _, err := s.do(ctx, http.MethodGet, "/bookings", nil, nil, &bookings); err != nil {
		s.log.WithError(err).Error("verification fetch failed")
		return false
	}

	doubles := findDoubleBookings(bookings)
	if len(doubles) == 0 {
		color.Green("VERIFIED: %d bookings, no slot booked twice", len(bookings))
		return true
	}

	color.Red("FAILED: %d slots booked more than once", len(doubles))
	for _, slot := range doubles {
		color.Red("  %s", slot)
	}
	return false
}

// findDoubleBookings returns "scheduleDayID time" keys shared by two or more non-cancelled bookings.
func findDoubleBookings(bookings []api.BookingResponse) []string {
	counts := make(map[string]int)
	for _, b := range bookings {
		if b.Status == string(ledger.StatusCancelled) {
			continue
		}
		counts[b.ScheduleDayID+" "+b.Time]++
	}

	var doubles []string
	for key, n := range counts {
		if n > 1 {
			doubles = append(doubles, key)
		}
	}
	slices.Sort(doubles)
	return doubles
}

// do sends a JSON request. A non-2xx status is returned without an error; out is decoded only on 2xx.
func (s *Simulator) do(ctx context.Context, method, path string, headers map[string]string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	bold := color.New(color.Bold)

	fmt.Println("\n" + strings.Repeat("=", 80))
	bold.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
	printOperationReport("Available Days", &s.metrics.Available)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	color.New(color.Bold).Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	color.Green("  Success: %d (%.1f%%)", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		color.Yellow("  Conflicts: %d (%.1f%%)", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		color.Red("  Errors: %d (%.1f%%)", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
