package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	PatientRegistered      Type = "PATIENT_REGISTERED"
	ProfessionalRegistered Type = "PROFESSIONAL_REGISTERED"
	FacilityRegistered     Type = "FACILITY_REGISTERED"
	ScheduleDayCreated     Type = "SCHEDULE_DAY_CREATED"
	ScheduleDayBlocked     Type = "SCHEDULE_DAY_BLOCKED"
	ScheduleDayUnblocked   Type = "SCHEDULE_DAY_UNBLOCKED"
	BookingCreated         Type = "BOOKING_CREATED"
	BookingStatusChanged   Type = "BOOKING_STATUS_CHANGED"
	WaitlistEntryAdded     Type = "WAITLIST_ENTRY_ADDED"
	WaitlistEntryChanged   Type = "WAITLIST_ENTRY_CHANGED"
	ReminderDispatched     Type = "REMINDER_DISPATCHED"
	ConfigUpdated          Type = "CONFIG_UPDATED"
)

type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	EntityID   string         `json:"entity_id"`
	PatientID  string         `json:"patient_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func New(eventType Type, entityID string, at time.Time, payload map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: at,
	}
}

// Sink receives events from the Dispatcher. Handle is only ever called from the dispatcher goroutine.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev Event) error
}
