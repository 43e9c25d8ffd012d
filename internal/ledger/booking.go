package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

func (req *BookingRequest) normalize() error {
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.ScheduleDayID = strings.TrimSpace(req.ScheduleDayID)
	req.Time = strings.TrimSpace(req.Time)

	if req.PatientID == "" {
		return invalid("patient id is required")
	}
	if req.ScheduleDayID == "" {
		return invalid("schedule day id is required")
	}
	if req.Time == "" {
		return invalid("time is required")
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}
	if !req.Priority.Valid() {
		return invalid("unknown priority %q", req.Priority)
	}
	if req.Status == "" {
		req.Status = StatusScheduled
	}
	if req.Status != StatusScheduled && req.Status != StatusConfirmed {
		return invalid("a booking must start as %s or %s, got %q", StatusScheduled, StatusConfirmed, req.Status)
	}
	return nil
}

// BookSlot binds the patient to the requested slot and records the booking.
// The lookup, availability check and every write happen in one critical section,
// so a slot can never be handed to two callers. Booking also moves every waiting
// waitlist entry of the patient, in any specialty, to scheduled.
func (l *Ledger) BookSlot(req BookingRequest) (Booking, error) {
	if err := req.normalize(); err != nil {
		return Booking{}, err
	}

	l.mu.Lock()

	day, ok := l.scheduleDays.get(req.ScheduleDayID)
	if !ok {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: %s", ErrScheduleDayNotFound, req.ScheduleDayID)
	}
	slot := findSlot(day, req.Time)
	if slot == nil {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: %s on %s", ErrSlotNotFound, req.Time, req.ScheduleDayID)
	}
	if !slot.Available {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: %s on %s", ErrSlotUnavailable, req.Time, req.ScheduleDayID)
	}

	now := l.now()

	slot.Available = false
	slot.PatientID = req.PatientID
	day.UsedQuota = min(day.TotalQuota, day.UsedQuota+1)
	day.UpdatedAt = now

	booking := Booking{
		ID:               l.newID("booking"),
		PatientID:        req.PatientID,
		ScheduleDayID:    day.ID,
		Date:             day.Date,
		Time:             slot.Time,
		Type:             req.Type,
		Status:           req.Status,
		Priority:         req.Priority,
		Notes:            req.Notes,
		ConfirmationCode: req.ConfirmationCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	stored := booking
	l.bookings.put(booking.ID, &stored)

	created := events.New(events.BookingCreated, booking.ID, now, map[string]any{
		"schedule_day_id": day.ID,
		"date":            booking.Date.Format(time.DateOnly),
		"time":            booking.Time,
		"status":          string(booking.Status),
		"priority":        string(booking.Priority),
	})
	created.PatientID = booking.PatientID
	pending := []events.Event{created}

	l.waitlist.each(func(entry *WaitlistEntry) bool {
		if entry.PatientID != booking.PatientID || entry.Status != WaitlistWaiting {
			return true
		}
		entry.Status = WaitlistScheduled
		contacted := now
		entry.LastContactAt = &contacted
		pending = append(pending, waitlistChanged(entry, WaitlistWaiting, now, booking.ID))
		return true
	})

	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"booking_id":      booking.ID,
		"schedule_day_id": booking.ScheduleDayID,
		"time":            booking.Time,
		"patient_id":      booking.PatientID,
	}).Debug("slot booked")
	l.publish(pending...)
	return booking, nil
}

func (l *Ledger) GetBooking(id string) (Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.bookings.get(id)
	if !ok {
		return Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b.clone(), nil
}

func (l *Ledger) ListBookings() []Booking {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listBookings(func(*Booking) bool { return true })
}

func (l *Ledger) ListBookingsByPatient(patientID string) []Booking {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listBookings(func(b *Booking) bool { return b.PatientID == patientID })
}

func (l *Ledger) listBookings(keep func(*Booking) bool) []Booking {
	out := make([]Booking, 0)
	l.bookings.each(func(b *Booking) bool {
		if keep(b) {
			out = append(out, b.clone())
		}
		return true
	})
	return out
}

// TransitionBooking moves a booking along scheduled -> confirmed -> completed, or to
// cancelled / no-show. Cancelling frees the slot so it can be booked again.
func (l *Ledger) TransitionBooking(id string, next BookingStatus) (Booking, error) {
	if !next.Valid() {
		return Booking{}, invalid("unknown booking status %q", next)
	}

	l.mu.Lock()
	b, ok := l.bookings.get(id)
	if !ok {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	ev, err := l.transitionLocked(b, next)
	if err != nil {
		l.mu.Unlock()
		return Booking{}, err
	}
	out := b.clone()
	l.mu.Unlock()

	l.publish(ev)
	return out, nil
}

// CancelBooking cancels a booking unless its start is closer than the configured
// minimum cancellation lead time.
func (l *Ledger) CancelBooking(id string, now time.Time) (Booking, error) {
	l.mu.Lock()
	b, ok := l.bookings.get(id)
	if !ok {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}

	startsAt, err := b.StartsAt()
	if err != nil {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("booking %s: %w", id, err)
	}
	minLead := time.Duration(l.config.CancellationMinHours) * time.Hour
	if startsAt.Sub(now) < minLead {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: booking %s starts at %s, minimum notice is %s",
			ErrCancellationTooLate, id, startsAt.Format(time.RFC3339), minLead)
	}

	ev, err := l.transitionLocked(b, StatusCancelled)
	if err != nil {
		l.mu.Unlock()
		return Booking{}, err
	}
	out := b.clone()
	l.mu.Unlock()

	l.publish(ev)
	return out, nil
}

func (l *Ledger) transitionLocked(b *Booking, next BookingStatus) (events.Event, error) {
	from := b.Status
	if !from.CanTransitionTo(next) {
		return events.Event{}, fmt.Errorf("%w: booking %s %s -> %s", ErrInvalidTransition, b.ID, from, next)
	}

	now := l.now()
	if next == StatusCancelled {
		l.releaseSlotLocked(b, now)
	}
	b.Status = next
	b.UpdatedAt = now

	l.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"from":       from,
		"to":         next,
	}).Debug("booking status changed")

	ev := events.New(events.BookingStatusChanged, b.ID, now, map[string]any{
		"from":            string(from),
		"to":              string(next),
		"schedule_day_id": b.ScheduleDayID,
		"time":            b.Time,
	})
	ev.PatientID = b.PatientID
	return ev, nil
}

func (l *Ledger) releaseSlotLocked(b *Booking, now time.Time) {
	day, ok := l.scheduleDays.get(b.ScheduleDayID)
	if !ok {
		return
	}
	slot := findSlot(day, b.Time)
	if slot == nil || slot.PatientID != b.PatientID {
		return
	}
	slot.Available = true
	slot.PatientID = ""
	day.UsedQuota = max(0, day.UsedQuota-1)
	day.UpdatedAt = now
}

func (l *Ledger) NoShowCount(patientID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.noShowsLocked(patientID)
}

func (l *Ledger) noShowsLocked(patientID string) int {
	count := 0
	l.bookings.each(func(b *Booking) bool {
		if b.PatientID == patientID && b.Status == StatusNoShow {
			count++
		}
		return true
	})
	return count
}

// IsPatientFlagged reports whether the patient reached the configured no-show limit.
// A limit of zero disables flagging.
func (l *Ledger) IsPatientFlagged(patientID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.config.MaxNoShows <= 0 {
		return false
	}
	return l.noShowsLocked(patientID) >= l.config.MaxNoShows
}
