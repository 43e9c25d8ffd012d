package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

const (
	MostUrgentRank  = 1
	LeastUrgentRank = 10
)

func waitlistChanged(entry *WaitlistEntry, from WaitlistStatus, at time.Time, bookingID string) events.Event {
	payload := map[string]any{
		"from":      string(from),
		"to":        string(entry.Status),
		"specialty": entry.Specialty,
	}
	if bookingID != "" {
		payload["booking_id"] = bookingID
	}
	ev := events.New(events.WaitlistEntryChanged, entry.ID, at, payload)
	ev.PatientID = entry.PatientID
	return ev
}

// AddToWaitlist upserts the entry by identifier. A missing identifier is generated,
// a missing status becomes waiting and a missing inclusion time becomes now.
func (l *Ledger) AddToWaitlist(entry WaitlistEntry) (WaitlistEntry, error) {
	if entry.PatientID == "" {
		return WaitlistEntry{}, invalid("patient id is required")
	}
	if entry.PriorityRank < MostUrgentRank || entry.PriorityRank > LeastUrgentRank {
		return WaitlistEntry{}, invalid("priority rank must be between %d and %d, got %d",
			MostUrgentRank, LeastUrgentRank, entry.PriorityRank)
	}
	if entry.Status == "" {
		entry.Status = WaitlistWaiting
	}
	if !entry.Status.Valid() {
		return WaitlistEntry{}, invalid("unknown waitlist status %q", entry.Status)
	}

	l.mu.Lock()
	now := l.now()
	if entry.ID == "" {
		entry.ID = l.newID("waitlist")
	}
	if entry.IncludedAt.IsZero() {
		entry.IncludedAt = now
	}
	stored := entry.clone()
	l.waitlist.put(entry.ID, &stored)
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"waitlist_id": entry.ID,
		"specialty":   entry.Specialty,
		"rank":        entry.PriorityRank,
	}).Debug("waitlist entry stored")

	ev := events.New(events.WaitlistEntryAdded, entry.ID, now, map[string]any{
		"specialty": entry.Specialty,
		"rank":      entry.PriorityRank,
		"status":    string(entry.Status),
	})
	ev.PatientID = entry.PatientID
	l.publish(ev)
	return entry.clone(), nil
}

func (l *Ledger) GetWaitlistEntry(id string) (WaitlistEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.waitlist.get(id)
	if !ok {
		return WaitlistEntry{}, fmt.Errorf("%w: %s", ErrWaitlistEntryNotFound, id)
	}
	return entry.clone(), nil
}

func (l *Ledger) ListWaitlist() []WaitlistEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listWaitlist(func(*WaitlistEntry) bool { return true })
}

// ListWaitlistBySpecialty orders entries by rank, most urgent first, then by inclusion time.
func (l *Ledger) ListWaitlistBySpecialty(specialty string) []WaitlistEntry {
	l.mu.RLock()
	out := l.listWaitlist(func(entry *WaitlistEntry) bool {
		return sameSpecialty(entry.Specialty, specialty)
	})
	l.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b WaitlistEntry) int {
		if c := cmp.Compare(a.PriorityRank, b.PriorityRank); c != 0 {
			return c
		}
		return a.IncludedAt.Compare(b.IncludedAt)
	})
	return out
}

func (l *Ledger) listWaitlist(keep func(*WaitlistEntry) bool) []WaitlistEntry {
	out := make([]WaitlistEntry, 0)
	l.waitlist.each(func(entry *WaitlistEntry) bool {
		if keep(entry) {
			out = append(out, entry.clone())
		}
		return true
	})
	return out
}

// RecordContactAttempt counts a contact attempt and moves a waiting entry to contacted.
func (l *Ledger) RecordContactAttempt(id string) (WaitlistEntry, error) {
	l.mu.Lock()
	entry, ok := l.waitlist.get(id)
	if !ok {
		l.mu.Unlock()
		return WaitlistEntry{}, fmt.Errorf("%w: %s", ErrWaitlistEntryNotFound, id)
	}
	if entry.Status.Terminal() {
		l.mu.Unlock()
		return WaitlistEntry{}, fmt.Errorf("%w: waitlist entry %s is %s", ErrInvalidTransition, id, entry.Status)
	}

	now := l.now()
	from := entry.Status
	entry.ContactAttempts++
	entry.LastContactAt = &now
	if entry.Status == WaitlistWaiting {
		entry.Status = WaitlistContacted
	}
	ev := waitlistChanged(entry, from, now, "")
	ev.Payload["contact_attempts"] = entry.ContactAttempts
	out := entry.clone()
	l.mu.Unlock()

	l.publish(ev)
	return out, nil
}

func (l *Ledger) TransitionWaitlistEntry(id string, next WaitlistStatus) (WaitlistEntry, error) {
	if !next.Valid() {
		return WaitlistEntry{}, invalid("unknown waitlist status %q", next)
	}

	l.mu.Lock()
	entry, ok := l.waitlist.get(id)
	if !ok {
		l.mu.Unlock()
		return WaitlistEntry{}, fmt.Errorf("%w: %s", ErrWaitlistEntryNotFound, id)
	}
	from := entry.Status
	if !from.CanTransitionTo(next) {
		l.mu.Unlock()
		return WaitlistEntry{}, fmt.Errorf("%w: waitlist entry %s %s -> %s", ErrInvalidTransition, id, from, next)
	}

	now := l.now()
	entry.Status = next
	if next == WaitlistContacted || next == WaitlistScheduled {
		entry.LastContactAt = &now
	}
	ev := waitlistChanged(entry, from, now, "")
	out := entry.clone()
	l.mu.Unlock()

	l.publish(ev)
	return out, nil
}
