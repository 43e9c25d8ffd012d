package ledger

import (
	"fmt"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

// RegisterPatient stores the patient, generating an identifier when it is missing.
// Registering an existing identifier overwrites the stored record.
func (l *Ledger) RegisterPatient(p Patient) Patient {
	l.mu.Lock()
	if p.ID == "" {
		p.ID = l.newID("patient")
	}
	stored := p
	l.patients.put(p.ID, &stored)
	at := l.now()
	l.mu.Unlock()

	l.log.WithField("patient_id", p.ID).Debug("patient registered")
	ev := events.New(events.PatientRegistered, p.ID, at, nil)
	ev.PatientID = p.ID
	l.publish(ev)
	return p
}

func (l *Ledger) GetPatient(id string) (Patient, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.patients.get(id)
	if !ok {
		return Patient{}, fmt.Errorf("%w: %s", ErrPatientNotFound, id)
	}
	return *p, nil
}

func (l *Ledger) ListPatients() []Patient {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listPatients()
}

func (l *Ledger) listPatients() []Patient {
	out := make([]Patient, 0, l.patients.len())
	l.patients.each(func(p *Patient) bool {
		out = append(out, *p)
		return true
	})
	return out
}

// RegisterProfessional upserts by identifier, which the caller must supply.
func (l *Ledger) RegisterProfessional(p Professional) error {
	if p.ID == "" {
		return invalid("professional id is required")
	}
	for _, s := range p.Specialties {
		if s == "" {
			return invalid("professional %s has an empty specialty", p.ID)
		}
	}

	stored := p.clone()
	l.mu.Lock()
	l.professionals.put(p.ID, &stored)
	at := l.now()
	l.mu.Unlock()

	l.log.WithField("professional_id", p.ID).Debug("professional registered")
	l.publish(events.New(events.ProfessionalRegistered, p.ID, at, map[string]any{
		"facility_id": p.FacilityID,
		"active":      p.Active,
	}))
	return nil
}

func (l *Ledger) GetProfessional(id string) (Professional, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.professionals.get(id)
	if !ok {
		return Professional{}, fmt.Errorf("%w: %s", ErrProfessionalNotFound, id)
	}
	return p.clone(), nil
}

func (l *Ledger) ListProfessionals() []Professional {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listProfessionals()
}

func (l *Ledger) listProfessionals() []Professional {
	out := make([]Professional, 0, l.professionals.len())
	l.professionals.each(func(p *Professional) bool {
		out = append(out, p.clone())
		return true
	})
	return out
}

func (l *Ledger) SetProfessionalActive(id string, active bool) (Professional, error) {
	l.mu.Lock()
	p, ok := l.professionals.get(id)
	if !ok {
		l.mu.Unlock()
		return Professional{}, fmt.Errorf("%w: %s", ErrProfessionalNotFound, id)
	}
	p.Active = active
	out := p.clone()
	at := l.now()
	l.mu.Unlock()

	l.publish(events.New(events.ProfessionalRegistered, id, at, map[string]any{"active": active}))
	return out, nil
}

// RegisterFacility upserts by identifier, which the caller must supply.
func (l *Ledger) RegisterFacility(f Facility) error {
	if f.ID == "" {
		return invalid("facility id is required")
	}

	stored := f
	l.mu.Lock()
	l.facilities.put(f.ID, &stored)
	at := l.now()
	l.mu.Unlock()

	l.log.WithField("facility_id", f.ID).Debug("facility registered")
	l.publish(events.New(events.FacilityRegistered, f.ID, at, map[string]any{"active": f.Active}))
	return nil
}

func (l *Ledger) GetFacility(id string) (Facility, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, ok := l.facilities.get(id)
	if !ok {
		return Facility{}, fmt.Errorf("%w: %s", ErrFacilityNotFound, id)
	}
	return *f, nil
}

func (l *Ledger) ListFacilities() []Facility {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listFacilities()
}

func (l *Ledger) listFacilities() []Facility {
	out := make([]Facility, 0, l.facilities.len())
	l.facilities.each(func(f *Facility) bool {
		out = append(out, *f)
		return true
	})
	return out
}

func (l *Ledger) SetFacilityActive(id string, active bool) (Facility, error) {
	l.mu.Lock()
	f, ok := l.facilities.get(id)
	if !ok {
		l.mu.Unlock()
		return Facility{}, fmt.Errorf("%w: %s", ErrFacilityNotFound, id)
	}
	f.Active = active
	out := *f
	at := l.now()
	l.mu.Unlock()

	l.publish(events.New(events.FacilityRegistered, id, at, map[string]any{"active": active}))
	return out, nil
}
