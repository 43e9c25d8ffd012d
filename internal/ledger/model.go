package ledger

import (
	"time"
)

type SlotKind string

const (
	SlotNormal       SlotKind = "normal"
	SlotPreferential SlotKind = "preferential"
	SlotExtra        SlotKind = "extra"
)

type BookingStatus string

const (
	StatusScheduled BookingStatus = "scheduled"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no-show"
)

type BookingPriority string

const (
	PriorityNormal       BookingPriority = "normal"
	PriorityUrgent       BookingPriority = "urgent"
	PriorityFollowUp     BookingPriority = "follow-up"
	PriorityPreferential BookingPriority = "preferential"
)

type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistContacted WaitlistStatus = "contacted"
	WaitlistScheduled WaitlistStatus = "scheduled"
	WaitlistGaveUp    WaitlistStatus = "gave-up"
)

type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder2h  ReminderKind = "2h"
)

type Patient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Professional struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Specialties []string `json:"specialties"`
	FacilityID  string   `json:"facility_id"`
	License     string   `json:"license,omitempty"`
	Active      bool     `json:"active"`
}

type Facility struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// Slot is one bookable time of a schedule day. Available is true exactly when PatientID is empty.
type Slot struct {
	Time      string   `json:"time"`
	Available bool     `json:"available"`
	Kind      SlotKind `json:"kind"`
	PatientID string   `json:"patient_id,omitempty"`
	Note      string   `json:"note,omitempty"`
}

type ScheduleDay struct {
	ID             string    `json:"id"`
	ProfessionalID string    `json:"professional_id"`
	FacilityID     string    `json:"facility_id"`
	Specialty      string    `json:"specialty"`
	Date           time.Time `json:"date"`
	Slots          []Slot    `json:"slots"`
	TotalQuota     int       `json:"total_quota"`
	UsedQuota      int       `json:"used_quota"`
	ReservedQuota  int       `json:"reserved_quota"`
	Blocked        bool      `json:"blocked"`
	BlockReason    string    `json:"block_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Booking struct {
	ID               string          `json:"id"`
	PatientID        string          `json:"patient_id"`
	ScheduleDayID    string          `json:"schedule_day_id"`
	Date             time.Time       `json:"date"`
	Time             string          `json:"time"`
	Type             string          `json:"type"`
	Status           BookingStatus   `json:"status"`
	Priority         BookingPriority `json:"priority"`
	Notes            string          `json:"notes,omitempty"`
	ConfirmationCode string          `json:"confirmation_code,omitempty"`
	NotificationSent bool            `json:"notification_sent"`
	RemindersSent    []ReminderKind  `json:"reminders_sent,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// StartsAt combines the booking date with its HH:mm time in the date's location.
func (b Booking) StartsAt() (time.Time, error) {
	return combine(b.Date, b.Time)
}

type WaitlistEntry struct {
	ID                string         `json:"id"`
	PatientID         string         `json:"patient_id"`
	Specialty         string         `json:"specialty"`
	PriorityRank      int            `json:"priority_rank"`
	Status            WaitlistStatus `json:"status"`
	IncludedAt        time.Time      `json:"included_at"`
	Criteria          []string       `json:"criteria,omitempty"`
	PreferredFacility string         `json:"preferred_facility,omitempty"`
	ContactAttempts   int            `json:"contact_attempts"`
	LastContactAt     *time.Time     `json:"last_contact_at,omitempty"`
	Notes             string         `json:"notes,omitempty"`
}

type Config struct {
	MinLeadDays          int  `json:"min_lead_days"`
	MaxLeadDays          int  `json:"max_lead_days"`
	Reminder24h          bool `json:"reminder_24h"`
	Reminder2h           bool `json:"reminder_2h"`
	NotifyWhatsApp       bool `json:"notify_whatsapp"`
	CancellationMinHours int  `json:"cancellation_min_hours"`
	MaxNoShows           int  `json:"max_no_shows"`
}

func DefaultConfig() Config {
	return Config{
		MinLeadDays:          1,
		MaxLeadDays:          60,
		Reminder24h:          true,
		Reminder2h:           true,
		NotifyWhatsApp:       false,
		CancellationMinHours: 2,
		MaxNoShows:           3,
	}
}

type CreateScheduleDayRequest struct {
	ProfessionalID string    `json:"professional_id"`
	FacilityID     string    `json:"facility_id"`
	Specialty      string    `json:"specialty"`
	Date           time.Time `json:"date"`
	Quota          int       `json:"quota"`
}

type BookingRequest struct {
	PatientID        string
	ScheduleDayID    string
	Time             string
	Type             string
	Priority         BookingPriority
	Status           BookingStatus
	Notes            string
	ConfirmationCode string
}

// Reminder is a pending notification for an upcoming booking
type Reminder struct {
	BookingID string       `json:"booking_id"`
	PatientID string       `json:"patient_id"`
	Kind      ReminderKind `json:"kind"`
	StartsAt  time.Time    `json:"starts_at"`
}

// Snapshot is a consistent copy of the whole ledger
type Snapshot struct {
	Patients      []Patient       `json:"patients"`
	Professionals []Professional  `json:"professionals"`
	Facilities    []Facility      `json:"facilities"`
	ScheduleDays  []ScheduleDay   `json:"schedule_days"`
	Bookings      []Booking       `json:"bookings"`
	Waitlist      []WaitlistEntry `json:"waitlist"`
	Config        Config          `json:"config"`
}
