package ledger

var bookingTransitions = map[BookingStatus][]BookingStatus{
	StatusScheduled: {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

var waitlistTransitions = map[WaitlistStatus][]WaitlistStatus{
	WaitlistWaiting:   {WaitlistContacted, WaitlistScheduled, WaitlistGaveUp},
	WaitlistContacted: {WaitlistScheduled, WaitlistGaveUp},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s.Valid() && len(bookingTransitions[s]) == 0
}

// Active bookings hold their slot.
func (s BookingStatus) Active() bool {
	return s != StatusCancelled
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (p BookingPriority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityFollowUp, PriorityPreferential:
		return true
	}
	return false
}

func (s WaitlistStatus) Valid() bool {
	switch s {
	case WaitlistWaiting, WaitlistContacted, WaitlistScheduled, WaitlistGaveUp:
		return true
	}
	return false
}

func (s WaitlistStatus) Terminal() bool {
	return s.Valid() && len(waitlistTransitions[s]) == 0
}

func (s WaitlistStatus) CanTransitionTo(next WaitlistStatus) bool {
	for _, allowed := range waitlistTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
