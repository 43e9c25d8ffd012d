package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/ledger"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/seed"
)

type seedConfig struct {
	APIBaseURL    string
	Facilities    int
	Professionals int
	Patients      int
	Days          int
	Quota         int
	Seed          uint64
}

type seeder struct {
	cfg    seedConfig
	client *http.Client
	log    *logrus.Entry
}

func main() {
	_ = godotenv.Load()

	log := logger.New(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "text")).WithComponent("seed")
	cfg := seedConfig{
		APIBaseURL:    strings.TrimRight(getEnv("SEED_API_BASE_URL", "http://localhost:8080"), "/"),
		Facilities:    getInt("SEED_FACILITIES", 3),
		Professionals: getInt("SEED_PROFESSIONALS", 12),
		Patients:      getInt("SEED_PATIENTS", 500),
		Days:          getInt("SEED_DAYS", 14),
		Quota:         getInt("SEED_QUOTA", 16),
		Seed:          uint64(getInt("SEED_RANDOM_SEED", 0)),
	}
	if cfg.Facilities <= 0 || cfg.Professionals <= 0 || cfg.Days <= 0 {
		log.Fatal("SEED_FACILITIES, SEED_PROFESSIONALS and SEED_DAYS must be > 0")
	}
	if cfg.Quota <= 0 || cfg.Quota > ledger.MaxQuota {
		log.Fatalf("SEED_QUOTA must be between 1 and %d", ledger.MaxQuota)
	}

	log.WithFields(logrus.Fields{
		"api":           cfg.APIBaseURL,
		"facilities":    cfg.Facilities,
		"professionals": cfg.Professionals,
		"patients":      cfg.Patients,
		"days":          cfg.Days,
	}).Info("seed starting")

	s := &seeder{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.run(ctx, gofakeit.New(cfg.Seed)); err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	log.Info("seed complete")
}

func (s *seeder) run(ctx context.Context, f *gofakeit.Faker) error {
	facilities := seed.FakeFacilities(f, s.cfg.Facilities)
	facilityIDs := make([]string, 0, len(facilities))
	for _, fac := range facilities {
		if err := s.send(ctx, http.MethodPut, "/facilities/"+fac.ID, fac, nil); err != nil {
			return fmt.Errorf("facility %s: %w", fac.ID, err)
		}
		facilityIDs = append(facilityIDs, fac.ID)
	}
	s.log.WithField("count", len(facilities)).Info("facilities seeded")

	professionals := seed.FakeProfessionals(f, s.cfg.Professionals, facilityIDs, seed.Specialties)
	for _, p := range professionals {
		if err := s.send(ctx, http.MethodPut, "/professionals/"+p.ID, p, nil); err != nil {
			return fmt.Errorf("professional %s: %w", p.ID, err)
		}
	}
	s.log.WithField("count", len(professionals)).Info("professionals seeded")

	for i, p := range seed.FakePatients(f, s.cfg.Patients) {
		if err := s.send(ctx, http.MethodPost, "/patients", p, nil); err != nil {
			return fmt.Errorf("patient %d: %w", i, err)
		}
	}
	s.log.WithField("count", s.cfg.Patients).Info("patients seeded")

	days := 0
	today := time.Now()
	for offset := 1; offset <= s.cfg.Days; offset++ {
		date := today.AddDate(0, 0, offset)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, p := range professionals {
			req := api.CreateScheduleDayRequest{
				ProfessionalID: p.ID,
				FacilityID:     p.FacilityID,
				Specialty:      p.Specialties[f.Number(0, len(p.Specialties)-1)],
				Date:           date.Format(time.DateOnly),
				Quota:          s.cfg.Quota,
			}
			var created api.ScheduleDayResponse
			if err := s.send(ctx, http.MethodPost, "/schedule-days", req, &created); err != nil {
				return fmt.Errorf("schedule day %s/%s: %w", p.ID, req.Date, err)
			}
			days++
		}
	}
	s.log.WithField("count", days).Info("schedule days seeded")

	return nil
}

// send encodes body as JSON and decodes a 2xx response into out when out is non-nil.
func (s *seeder) send(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, apiErr.Error, apiErr.Details)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
