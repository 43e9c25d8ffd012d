package ledger

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

// Publisher receives ledger events once the mutation that produced them is visible.
type Publisher interface {
	Publish(ev events.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

// Ledger is the in-memory source of truth for the scheduling directory, schedule days,
// bookings and the specialty waitlist. Every operation runs under one mutex, so each
// one is atomic with respect to the others.
type Ledger struct {
	mu sync.RWMutex

	patients      *table[Patient]
	professionals *table[Professional]
	facilities    *table[Facility]
	scheduleDays  *table[ScheduleDay]
	bookings      *table[Booking]
	waitlist      *table[WaitlistEntry]
	config        Config

	now       func() time.Time
	newID     func(prefix string) string
	publisher Publisher
	log       *logrus.Entry
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func WithIDGenerator(gen func(prefix string) string) Option {
	return func(l *Ledger) {
		l.newID = gen
	}
}

func WithPublisher(p Publisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

func New(cfg Config, opts ...Option) *Ledger {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	l := &Ledger{
		patients:      newTable[Patient](),
		professionals: newTable[Professional](),
		facilities:    newTable[Facility](),
		scheduleDays:  newTable[ScheduleDay](),
		bookings:      newTable[Booking](),
		waitlist:      newTable[WaitlistEntry](),
		config:        cfg,
		now:           time.Now,
		newID:         defaultID,
		publisher:     nopPublisher{},
		log:           logrus.NewEntry(silent),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func defaultID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// publish must be called after the lock is released
func (l *Ledger) publish(evs ...events.Event) {
	for _, ev := range evs {
		l.publisher.Publish(ev)
	}
}

func (l *Ledger) GetConfig() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// SetConfig replaces the whole configuration; there is no partial update.
func (l *Ledger) SetConfig(cfg Config) {
	l.mu.Lock()
	l.config = cfg
	at := l.now()
	l.mu.Unlock()

	l.log.WithField("config", cfg).Debug("ledger config replaced")
	l.publish(events.New(events.ConfigUpdated, "config", at, map[string]any{
		"min_lead_days":          cfg.MinLeadDays,
		"max_lead_days":          cfg.MaxLeadDays,
		"reminder_24h":           cfg.Reminder24h,
		"reminder_2h":            cfg.Reminder2h,
		"notify_whatsapp":        cfg.NotifyWhatsApp,
		"cancellation_min_hours": cfg.CancellationMinHours,
		"max_no_shows":           cfg.MaxNoShows,
	}))
}

// Snapshot copies every table under a single read lock.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Snapshot{
		Patients:      l.listPatients(),
		Professionals: l.listProfessionals(),
		Facilities:    l.listFacilities(),
		ScheduleDays:  l.listScheduleDays(func(*ScheduleDay) bool { return true }),
		Bookings:      l.listBookings(func(*Booking) bool { return true }),
		Waitlist:      l.listWaitlist(func(*WaitlistEntry) bool { return true }),
		Config:        l.config,
	}
}
