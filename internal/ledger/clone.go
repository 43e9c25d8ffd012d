package ledger

import "slices"

// Copies handed out by the ledger never share slices or pointers with stored rows.

func (p Professional) clone() Professional {
	p.Specialties = slices.Clone(p.Specialties)
	return p
}

func (d ScheduleDay) clone() ScheduleDay {
	d.Slots = slices.Clone(d.Slots)
	return d
}

func (b Booking) clone() Booking {
	b.RemindersSent = slices.Clone(b.RemindersSent)
	return b
}

func (w WaitlistEntry) clone() WaitlistEntry {
	w.Criteria = slices.Clone(w.Criteria)
	if w.LastContactAt != nil {
		at := *w.LastContactAt
		w.LastContactAt = &at
	}
	return w
}
