package reminder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

type Source interface {
	DueReminders(now time.Time) []ledger.Reminder
	MarkReminderSent(bookingID string, kind ledger.ReminderKind) (ledger.Booking, error)
}

// Worker marks due reminders as sent. The resulting REMINDER_DISPATCHED events are
// what the notifier turns into patient messages.
type Worker struct {
	source Source
	now    func() time.Time
	log    *logrus.Entry
}

func NewWorker(source Source, now func() time.Time, log *logrus.Entry) *Worker {
	if now == nil {
		now = time.Now
	}
	return &Worker{source: source, now: now, log: log}
}

// RunOnce dispatches every reminder that is due now and returns how many were marked.
func (w *Worker) RunOnce(ctx context.Context) int {
	start := time.Now()
	sent := 0
	for _, r := range w.source.DueReminders(w.now()) {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.source.MarkReminderSent(r.BookingID, r.Kind); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"booking_id": r.BookingID,
				"kind":       r.Kind,
			}).Warn("could not mark reminder sent")
			continue
		}
		sent++
	}

	w.log.WithFields(logrus.Fields{
		"sent":     sent,
		"duration": time.Since(start).String(),
	}).Debug("reminder run complete")
	return sent
}

// Run scans once at startup and then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	w.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}
