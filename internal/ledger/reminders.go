package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

var reminderWindows = []struct {
	kind   ReminderKind
	window time.Duration
}{
	{Reminder2h, 2 * time.Hour},
	{Reminder24h, 24 * time.Hour},
}

func (c Config) reminderEnabled(kind ReminderKind) bool {
	switch kind {
	case Reminder24h:
		return c.Reminder24h
	case Reminder2h:
		return c.Reminder2h
	}
	return false
}

// DueReminders lists reminders whose window has opened and that were not sent yet.
// A booking inside the 2h window with both kinds unsent gets both.
func (l *Ledger) DueReminders(now time.Time) []Reminder {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var due []Reminder
	l.bookings.each(func(b *Booking) bool {
		if b.Status != StatusScheduled && b.Status != StatusConfirmed {
			return true
		}
		startsAt, err := b.StartsAt()
		if err != nil || !startsAt.After(now) {
			return true
		}
		until := startsAt.Sub(now)
		for _, w := range reminderWindows {
			if !l.config.reminderEnabled(w.kind) || until > w.window || slices.Contains(b.RemindersSent, w.kind) {
				continue
			}
			due = append(due, Reminder{
				BookingID: b.ID,
				PatientID: b.PatientID,
				Kind:      w.kind,
				StartsAt:  startsAt,
			})
		}
		return true
	})
	return due
}

// MarkReminderSent records that a reminder went out. Marking the same kind twice is a no-op.
func (l *Ledger) MarkReminderSent(bookingID string, kind ReminderKind) (Booking, error) {
	if kind != Reminder24h && kind != Reminder2h {
		return Booking{}, invalid("unknown reminder kind %q", kind)
	}

	l.mu.Lock()
	b, ok := l.bookings.get(bookingID)
	if !ok {
		l.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	if slices.Contains(b.RemindersSent, kind) {
		out := b.clone()
		l.mu.Unlock()
		return out, nil
	}

	now := l.now()
	b.RemindersSent = append(b.RemindersSent, kind)
	b.NotificationSent = true
	b.UpdatedAt = now
	out := b.clone()
	l.mu.Unlock()

	ev := events.New(events.ReminderDispatched, bookingID, now, map[string]any{
		"kind":            string(kind),
		"schedule_day_id": out.ScheduleDayID,
		"date":            out.Date.Format(time.DateOnly),
		"time":            out.Time,
	})
	ev.PatientID = out.PatientID
	l.publish(ev)
	return out, nil
}
