package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Callers should match on these with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidTransition = errors.New("invalid status transition")
)

var (
	ErrPatientNotFound       = fmt.Errorf("patient %w", ErrNotFound)
	ErrProfessionalNotFound  = fmt.Errorf("professional %w", ErrNotFound)
	ErrFacilityNotFound      = fmt.Errorf("facility %w", ErrNotFound)
	ErrScheduleDayNotFound   = fmt.Errorf("schedule day %w", ErrNotFound)
	ErrSlotNotFound          = fmt.Errorf("slot %w", ErrNotFound)
	ErrBookingNotFound       = fmt.Errorf("booking %w", ErrNotFound)
	ErrWaitlistEntryNotFound = fmt.Errorf("waitlist entry %w", ErrNotFound)

	ErrCancellationTooLate = fmt.Errorf("%w: cancellation window closed", ErrInvalidRequest)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
