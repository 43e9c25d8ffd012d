package api

import (
	"fmt"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type CreateScheduleDayRequest struct {
	ProfessionalID string `json:"professional_id"`
	FacilityID     string `json:"facility_id"`
	Specialty      string `json:"specialty"`
	Date           string `json:"date"` // YYYY-MM-DD
	Quota          int    `json:"quota"`
}

type CreateBookingRequest struct {
	PatientID        string `json:"patient_id"`
	ScheduleDayID    string `json:"schedule_day_id"`
	Time             string `json:"time"`
	Type             string `json:"type"`
	Priority         string `json:"priority,omitempty"`
	Status           string `json:"status,omitempty"`
	Notes            string `json:"notes,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
}

func (req CreateBookingRequest) toLedger() ledger.BookingRequest {
	return ledger.BookingRequest{
		PatientID:        req.PatientID,
		ScheduleDayID:    req.ScheduleDayID,
		Time:             req.Time,
		Type:             req.Type,
		Priority:         ledger.BookingPriority(req.Priority),
		Status:           ledger.BookingStatus(req.Status),
		Notes:            req.Notes,
		ConfirmationCode: req.ConfirmationCode,
	}
}

// fingerprint identifies the slot a keyed request is after.
func (req CreateBookingRequest) fingerprint() string {
	return fmt.Sprintf("%s|%s|%s", req.PatientID, req.ScheduleDayID, req.Time)
}

type StatusRequest struct {
	Status string `json:"status"`
}

type BlockRequest struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

type ActiveRequest struct {
	Active *bool `json:"active"`
}

type ScheduleDayResponse struct {
	ID             string        `json:"id"`
	ProfessionalID string        `json:"professional_id"`
	FacilityID     string        `json:"facility_id"`
	Specialty      string        `json:"specialty"`
	Date           string        `json:"date"`
	Slots          []ledger.Slot `json:"slots"`
	TotalQuota     int           `json:"total_quota"`
	UsedQuota      int           `json:"used_quota"`
	ReservedQuota  int           `json:"reserved_quota"`
	Blocked        bool          `json:"blocked"`
	BlockReason    string        `json:"block_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func toScheduleDayResponse(d ledger.ScheduleDay) ScheduleDayResponse {
	return ScheduleDayResponse{
		ID:             d.ID,
		ProfessionalID: d.ProfessionalID,
		FacilityID:     d.FacilityID,
		Specialty:      d.Specialty,
		Date:           d.Date.Format(time.DateOnly),
		Slots:          d.Slots,
		TotalQuota:     d.TotalQuota,
		UsedQuota:      d.UsedQuota,
		ReservedQuota:  d.ReservedQuota,
		Blocked:        d.Blocked,
		BlockReason:    d.BlockReason,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toScheduleDayResponses(days []ledger.ScheduleDay) []ScheduleDayResponse {
	out := make([]ScheduleDayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, toScheduleDayResponse(d))
	}
	return out
}

type BookingResponse struct {
	ID               string                `json:"id"`
	PatientID        string                `json:"patient_id"`
	ScheduleDayID    string                `json:"schedule_day_id"`
	Date             string                `json:"date"`
	Time             string                `json:"time"`
	Type             string                `json:"type"`
	Status           string                `json:"status"`
	Priority         string                `json:"priority"`
	Notes            string                `json:"notes,omitempty"`
	ConfirmationCode string                `json:"confirmation_code,omitempty"`
	NotificationSent bool                  `json:"notification_sent"`
	RemindersSent    []ledger.ReminderKind `json:"reminders_sent,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func toBookingResponse(b ledger.Booking) BookingResponse {
	return BookingResponse{
		ID:               b.ID,
		PatientID:        b.PatientID,
		ScheduleDayID:    b.ScheduleDayID,
		Date:             b.Date.Format(time.DateOnly),
		Time:             b.Time,
		Type:             b.Type,
		Status:           string(b.Status),
		Priority:         string(b.Priority),
		Notes:            b.Notes,
		ConfirmationCode: b.ConfirmationCode,
		NotificationSent: b.NotificationSent,
		RemindersSent:    b.RemindersSent,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func toBookingResponses(bookings []ledger.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

type NoShowResponse struct {
	PatientID string `json:"patient_id"`
	NoShows   int    `json:"no_shows"`
	Flagged   bool   `json:"flagged"`
}

type SnapshotResponse struct {
	Patients      []ledger.Patient       `json:"patients"`
	Professionals []ledger.Professional  `json:"professionals"`
	Facilities    []ledger.Facility      `json:"facilities"`
	ScheduleDays  []ScheduleDayResponse  `json:"schedule_days"`
	Bookings      []BookingResponse      `json:"bookings"`
	Waitlist      []ledger.WaitlistEntry `json:"waitlist"`
	Config        ledger.Config          `json:"config"`
}

func toSnapshotResponse(s ledger.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Patients:      s.Patients,
		Professionals: s.Professionals,
		Facilities:    s.Facilities,
		ScheduleDays:  toScheduleDayResponses(s.ScheduleDays),
		Bookings:      toBookingResponses(s.Bookings),
		Waitlist:      s.Waitlist,
		Config:        s.Config,
	}
}

type EventsResponse struct {
	Events []events.Event `json:"events"`
}
