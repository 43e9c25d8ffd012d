// Package seed loads demo data into a ledger and generates fake directory records.
package seed

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

var Specialties = []string{
	"cardiologia",
	"dermatologia",
	"clinica geral",
	"ortopedia",
	"endocrinologia",
	"neurologia",
	"pediatria",
	"psiquiatria",
	"oftalmologia",
	"otorrinolaringologia",
}

// Demo holds the identifiers Baseline created, for callers that want to reference them.
type Demo struct {
	CardiologyDayID  string
	DermatologyDayID string
	BookingIDs       []string
	WaitlistIDs      []string
}

// Baseline loads the demo clinic: two facilities, two professionals, one cardiology day
// tomorrow, one dermatology day in three days, two bookings and two waitlist entries.
func Baseline(l *ledger.Ledger, now time.Time) (Demo, error) {
	var demo Demo

	facilities := []ledger.Facility{
		{
			ID:          "unidade-central",
			Name:        "UBS Central",
			Address:     "Rua das Flores, 100",
			Phone:       "(11) 4000-1000",
			City:        "São Paulo",
			State:       "SP",
			Description: "Unidade de referência para atendimentos gerais",
			Active:      true,
		},
		{
			ID:          "unidade-sul",
			Name:        "Clínica Sul",
			Address:     "Avenida Brasil, 250",
			Phone:       "(11) 4000-2000",
			City:        "São Paulo",
			State:       "SP",
			Description: "Especializada em atendimento cardiológico",
			Active:      true,
		},
	}
	for _, f := range facilities {
		if err := l.RegisterFacility(f); err != nil {
			return Demo{}, fmt.Errorf("facility %s: %w", f.ID, err)
		}
	}

	professionals := []ledger.Professional{
		{ID: "prof-ana", Name: "Dra. Ana Cardoso", Specialties: []string{"cardiologia"}, FacilityID: "unidade-central", License: "CRM 12345", Active: true},
		{ID: "prof-carlos", Name: "Dr. Carlos Mendes", Specialties: []string{"dermatologia"}, FacilityID: "unidade-sul", License: "CRM 67890", Active: true},
	}
	for _, p := range professionals {
		if err := l.RegisterProfessional(p); err != nil {
			return Demo{}, fmt.Errorf("professional %s: %w", p.ID, err)
		}
	}

	for _, p := range []ledger.Patient{
		{ID: "1", Name: "Maria da Silva", Phone: "(11) 98888-0001"},
		{ID: "2", Name: "José Pereira", Phone: "(11) 98888-0002"},
		{ID: "3", Name: "Antônia Souza", Phone: "(11) 98888-0003"},
	} {
		l.RegisterPatient(p)
	}

	cardio, err := l.CreateScheduleDay(ledger.CreateScheduleDayRequest{
		ProfessionalID: "prof-ana",
		FacilityID:     "unidade-central",
		Specialty:      "cardiologia",
		Date:           now.AddDate(0, 0, 1),
		Quota:          16,
	})
	if err != nil {
		return Demo{}, fmt.Errorf("cardiology day: %w", err)
	}
	demo.CardiologyDayID = cardio.ID

	derm, err := l.CreateScheduleDay(ledger.CreateScheduleDayRequest{
		ProfessionalID: "prof-carlos",
		FacilityID:     "unidade-sul",
		Specialty:      "dermatologia",
		Date:           now.AddDate(0, 0, 3),
		Quota:          12,
	})
	if err != nil {
		return Demo{}, fmt.Errorf("dermatology day: %w", err)
	}
	demo.DermatologyDayID = derm.ID

	bookings := []ledger.BookingRequest{
		{
			PatientID:        "1",
			ScheduleDayID:    cardio.ID,
			Time:             "09:00",
			Type:             "consulta",
			Status:           ledger.StatusConfirmed,
			Priority:         ledger.PriorityNormal,
			Notes:            "Paciente com hipertensão",
			ConfirmationCode: "CONF123",
		},
		{
			PatientID:        "2",
			ScheduleDayID:    derm.ID,
			Time:             "10:30",
			Type:             "consulta",
			Status:           ledger.StatusScheduled,
			Priority:         ledger.PriorityPreferential,
			Notes:            "Lesão de pele",
			ConfirmationCode: "CONF456",
		},
	}
	for _, req := range bookings {
		b, err := l.BookSlot(req)
		if err != nil {
			return Demo{}, fmt.Errorf("booking for patient %s: %w", req.PatientID, err)
		}
		demo.BookingIDs = append(demo.BookingIDs, b.ID)
	}

	// added after the bookings so both entries stay waiting
	waitlist := []ledger.WaitlistEntry{
		{
			PatientID:         "3",
			Specialty:         "cardiologia",
			PriorityRank:      2,
			Status:            ledger.WaitlistWaiting,
			IncludedAt:        now.AddDate(0, 0, -2),
			Criteria:          []string{"idoso", "doença crônica"},
			PreferredFacility: "unidade-central",
			ContactAttempts:   1,
			Notes:             "Paciente relatou dor no peito",
		},
		{
			PatientID:         "2",
			Specialty:         "dermatologia",
			PriorityRank:      4,
			Status:            ledger.WaitlistWaiting,
			IncludedAt:        now.AddDate(0, 0, -5),
			Criteria:          []string{"paciente reincidente"},
			PreferredFacility: "unidade-sul",
		},
	}
	for _, entry := range waitlist {
		stored, err := l.AddToWaitlist(entry)
		if err != nil {
			return Demo{}, fmt.Errorf("waitlist for patient %s: %w", entry.PatientID, err)
		}
		demo.WaitlistIDs = append(demo.WaitlistIDs, stored.ID)
	}

	return demo, nil
}

// FakePatients generates patients without identifiers; the ledger assigns them on registration.
func FakePatients(f *gofakeit.Faker, n int) []ledger.Patient {
	out := make([]ledger.Patient, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ledger.Patient{
			Name:  f.Name(),
			Email: f.Email(),
			Phone: f.Phone(),
		})
	}
	return out
}

func FakeFacilities(f *gofakeit.Faker, n int) []ledger.Facility {
	out := make([]ledger.Facility, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ledger.Facility{
			ID:      fmt.Sprintf("unidade-%s", f.UUID()[:8]),
			Name:    f.Company(),
			Address: f.Street(),
			Phone:   f.Phone(),
			City:    f.City(),
			State:   f.StateAbr(),
			Active:  true,
		})
	}
	return out
}

// FakeProfessionals spreads professionals over the given facilities, each with one or two specialties.
func FakeProfessionals(f *gofakeit.Faker, n int, facilityIDs, specialties []string) []ledger.Professional {
	if len(specialties) == 0 {
		specialties = Specialties
	}
	out := make([]ledger.Professional, 0, n)
	for i := 0; i < n; i++ {
		specs := []string{specialties[f.Number(0, len(specialties)-1)]}
		if f.Bool() {
			second := specialties[f.Number(0, len(specialties)-1)]
			if second != specs[0] {
				specs = append(specs, second)
			}
		}

		var facilityID string
		if len(facilityIDs) > 0 {
			facilityID = facilityIDs[i%len(facilityIDs)]
		}

		out = append(out, ledger.Professional{
			ID:          fmt.Sprintf("prof-%s", f.UUID()[:8]),
			Name:        f.Name(),
			Specialties: specs,
			FacilityID:  facilityID,
			License:     f.Numerify("CRM #####"),
			Active:      true,
		})
	}
	return out
}
