// Package notify turns ledger events into patient notifications and queues them
// in Redis lists for a delivery gateway to pick up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/ledger"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder24h  Kind = "reminder_24h"
	KindReminder2h   Kind = "reminder_2h"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	Channel   Channel   `json:"channel"`
	Kind      Kind      `json:"kind"`
	BookingID string    `json:"booking_id"`
	PatientID string    `json:"patient_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Outbox is the subset of *redis.Client used to queue notifications.
type Outbox interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ConfigSource exposes the live ledger configuration.
type ConfigSource interface {
	GetConfig() ledger.Config
}

type Notifier struct {
	outbox   Outbox
	config   ConfigSource
	dedupTTL time.Duration
	log      *logrus.Entry
}

func NewNotifier(outbox Outbox, config ConfigSource, dedupTTL time.Duration, log *logrus.Entry) *Notifier {
	return &Notifier{
		outbox:   outbox,
		config:   config,
		dedupTTL: dedupTTL,
		log:      log,
	}
}

func (n *Notifier) Name() string { return "notify" }

func QueueKey(ch Channel) string {
	return "notifications:" + string(ch)
}

func dedupKey(bookingID string, kind Kind) string {
	return fmt.Sprintf("notified:%s:%s", bookingID, kind)
}

// Handle implements events.Sink. Events that do not concern a patient are ignored.
func (n *Notifier) Handle(ctx context.Context, ev events.Event) error {
	channel := ChannelSMS
	if n.config.GetConfig().NotifyWhatsApp {
		channel = ChannelWhatsApp
	}

	note, ok := buildNotification(ev, channel)
	if !ok {
		return nil
	}

	key := dedupKey(note.BookingID, note.Kind)
	fresh, err := n.outbox.SetNX(ctx, key, note.ID.String(), n.dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("dedup notification: %w", err)
	}
	if !fresh {
		n.log.WithFields(logrus.Fields{
			"booking_id": note.BookingID,
			"kind":       note.Kind,
		}).Debug("notification already queued")
		return nil
	}

	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.outbox.LPush(ctx, QueueKey(channel), body).Err(); err != nil {
		// release the dedup key so a redelivered event can queue it again
		if delErr := n.outbox.Del(ctx, key).Err(); delErr != nil {
			n.log.WithError(delErr).WithField("key", key).Warn("failed to release notification dedup key")
		}
		return fmt.Errorf("queue notification: %w", err)
	}

	n.log.WithFields(logrus.Fields{
		"booking_id": note.BookingID,
		"kind":       note.Kind,
		"channel":    channel,
	}).Info("notification queued")
	return nil
}

func buildNotification(ev events.Event, channel Channel) (Notification, bool) {
	if ev.PatientID == "" {
		return Notification{}, false
	}

	date, _ := ev.Payload["date"].(string)
	clock, _ := ev.Payload["time"].(string)

	var (
		kind    Kind
		message string
	)
	switch ev.Type {
	case events.BookingCreated:
		kind = KindConfirmation
		message = fmt.Sprintf("Your appointment on %s at %s is booked.", date, clock)
	case events.ReminderDispatched:
		switch ev.Payload["kind"] {
		case string(ledger.Reminder24h):
			kind = KindReminder24h
			message = fmt.Sprintf("Reminder: you have an appointment tomorrow, %s at %s.", date, clock)
		case string(ledger.Reminder2h):
			kind = KindReminder2h
			message = fmt.Sprintf("Reminder: your appointment starts at %s today.", clock)
		default:
			return Notification{}, false
		}
	default:
		return Notification{}, false
	}

	return Notification{
		ID:        uuid.New(),
		Channel:   channel,
		Kind:      kind,
		BookingID: ev.EntityID,
		PatientID: ev.PatientID,
		Message:   message,
		CreatedAt: ev.OccurredAt,
	}, true
}
