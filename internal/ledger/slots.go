package ledger

import (
	"fmt"
	"time"
)

const (
	firstSlotMinute = 8 * 60
	slotInterval    = 30
	// MaxQuota keeps every generated slot inside one calendar day (last slot 23:30).
	MaxQuota = (24*60 - firstSlotMinute) / slotInterval
)

// generateSlots lays out quota slots from 08:00 every 30 minutes, all free.
func generateSlots(quota int) []Slot {
	slots := make([]Slot, 0, quota)
	for i := 0; i < quota; i++ {
		minute := firstSlotMinute + i*slotInterval
		slots = append(slots, Slot{
			Time:      fmt.Sprintf("%02d:%02d", minute/60, minute%60),
			Available: true,
			Kind:      SlotNormal,
		})
	}
	return slots
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// calendarDate maps t to midnight UTC of its own calendar date, so dates from different
// locations compare by (year, month, day).
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// combine places an HH:mm clock time on the calendar day of date.
func combine(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot time %q: %w", clock, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, date.Location()), nil
}

func findSlot(day *ScheduleDay, clock string) *Slot {
	for i := range day.Slots {
		if day.Slots[i].Time == clock {
			return &day.Slots[i]
		}
	}
	return nil
}
