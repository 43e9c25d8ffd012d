package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

func sameSpecialty(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CreateScheduleDay stores a new day with quota free slots. Nothing is stored when validation fails.
func (l *Ledger) CreateScheduleDay(req CreateScheduleDayRequest) (ScheduleDay, error) {
	if req.Quota < 0 {
		return ScheduleDay{}, invalid("quota must not be negative, got %d", req.Quota)
	}
	if req.Quota > MaxQuota {
		return ScheduleDay{}, invalid("quota must not exceed %d, got %d", MaxQuota, req.Quota)
	}
	if req.Date.IsZero() {
		return ScheduleDay{}, invalid("date is required")
	}

	l.mu.Lock()
	now := l.now()
	day := ScheduleDay{
		ID:             l.newID("schedule-day"),
		ProfessionalID: req.ProfessionalID,
		FacilityID:     req.FacilityID,
		Specialty:      req.Specialty,
		Date:           startOfDay(req.Date),
		Slots:          generateSlots(req.Quota),
		TotalQuota:     req.Quota,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	stored := day.clone()
	l.scheduleDays.put(day.ID, &stored)
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"schedule_day_id": day.ID,
		"specialty":       day.Specialty,
		"quota":           day.TotalQuota,
	}).Debug("schedule day created")
	l.publish(events.New(events.ScheduleDayCreated, day.ID, now, map[string]any{
		"professional_id": day.ProfessionalID,
		"facility_id":     day.FacilityID,
		"specialty":       day.Specialty,
		"date":            day.Date.Format(time.DateOnly),
		"quota":           day.TotalQuota,
	}))
	return day, nil
}

// SetScheduleDayBlocked toggles the blocked flag. The reason is kept only while blocked.
func (l *Ledger) SetScheduleDayBlocked(id string, blocked bool, reason string) (ScheduleDay, error) {
	l.mu.Lock()
	day, ok := l.scheduleDays.get(id)
	if !ok {
		l.mu.Unlock()
		return ScheduleDay{}, fmt.Errorf("%w: %s", ErrScheduleDayNotFound, id)
	}
	day.Blocked = blocked
	if blocked {
		day.BlockReason = reason
	} else {
		day.BlockReason = ""
	}
	day.UpdatedAt = l.now()
	out := day.clone()
	l.mu.Unlock()

	eventType := events.ScheduleDayUnblocked
	if blocked {
		eventType = events.ScheduleDayBlocked
	}
	l.publish(events.New(eventType, id, out.UpdatedAt, map[string]any{"reason": out.BlockReason}))
	return out, nil
}

func (l *Ledger) GetScheduleDay(id string) (ScheduleDay, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	day, ok := l.scheduleDays.get(id)
	if !ok {
		return ScheduleDay{}, fmt.Errorf("%w: %s", ErrScheduleDayNotFound, id)
	}
	return day.clone(), nil
}

func (l *Ledger) ListScheduleDays() []ScheduleDay {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listScheduleDays(func(*ScheduleDay) bool { return true })
}

// ListAvailableScheduleDays returns unblocked days of the specialty on or after the reference
// day that still have a free slot, in insertion order. Days are compared by calendar date,
// each in its own location.
func (l *Ledger) ListAvailableScheduleDays(specialty string, reference time.Time) []ScheduleDay {
	from := calendarDate(reference)

	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.listScheduleDays(func(day *ScheduleDay) bool {
		if day.Blocked || !sameSpecialty(day.Specialty, specialty) || calendarDate(day.Date).Before(from) {
			return false
		}
		for _, slot := range day.Slots {
			if slot.Available {
				return true
			}
		}
		return false
	})
}

func (l *Ledger) listScheduleDays(keep func(*ScheduleDay) bool) []ScheduleDay {
	out := make([]ScheduleDay, 0)
	l.scheduleDays.each(func(day *ScheduleDay) bool {
		if keep(day) {
			out = append(out, day.clone())
		}
		return true
	})
	return out
}
