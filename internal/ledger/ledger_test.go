package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

var baseTime = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type captured struct {
	mu  sync.Mutex
	evs []events.Event
}

func (c *captured) Publish(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evs = append(c.evs, ev)
}

func (c *captured) types() []events.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Type, 0, len(c.evs))
	for _, ev := range c.evs {
		out = append(out, ev.Type)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLedger(t *testing.T, cfg Config) (*Ledger, *fakeClock, *captured) {
	t.Helper()
	clock := &fakeClock{now: baseTime}
	pub := &captured{}
	var seq atomic.Int64
	l := New(cfg,
		WithClock(clock.Now),
		WithPublisher(pub),
		WithIDGenerator(func(prefix string) string {
			return fmt.Sprintf("%s-%d", prefix, seq.Add(1))
		}),
	)
	return l, clock, pub
}

func createDay(t *testing.T, l *Ledger, specialty string, date time.Time, quota int) ScheduleDay {
	t.Helper()
	day, err := l.CreateScheduleDay(CreateScheduleDayRequest{
		ProfessionalID: "prof-1",
		FacilityID:     "fac-1",
		Specialty:      specialty,
		Date:           date,
		Quota:          quota,
	})
	require.NoError(t, err)
	return day
}

func assertQuotaInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	for _, day := range l.ListScheduleDays() {
		taken := 0
		for _, slot := range day.Slots {
			if !slot.Available {
				taken++
			}
		}
		assert.GreaterOrEqual(t, day.UsedQuota, 0, day.ID)
		assert.LessOrEqual(t, day.UsedQuota, day.TotalQuota, day.ID)
		assert.Equal(t, taken, day.UsedQuota, day.ID)
	}
}

func TestCreateScheduleDayGeneratesSlots(t *testing.T) {
	l, _, pub := newTestLedger(t, DefaultConfig())

	day := createDay(t, l, "cardiology", baseTime.Add(24*time.Hour), 2)

	require.Len(t, day.Slots, 2)
	assert.Equal(t, "08:00", day.Slots[0].Time)
	assert.Equal(t, "08:30", day.Slots[1].Time)
	for _, slot := range day.Slots {
		assert.True(t, slot.Available)
		assert.Equal(t, SlotNormal, slot.Kind)
	}
	assert.Equal(t, 0, day.UsedQuota)
	assert.Equal(t, 0, day.ReservedQuota)
	assert.False(t, day.Blocked)
	assert.Equal(t, time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC), day.Date)
	assert.Equal(t, baseTime, day.CreatedAt)
	assert.Equal(t, []events.Type{events.ScheduleDayCreated}, pub.types())
}

func TestCreateScheduleDayRejectsInvalidQuota(t *testing.T) {
	l, _, pub := newTestLedger(t, DefaultConfig())

	for _, quota := range []int{-1, MaxQuota + 1} {
		_, err := l.CreateScheduleDay(CreateScheduleDayRequest{Specialty: "cardiology", Date: baseTime, Quota: quota})
		require.ErrorIs(t, err, ErrInvalidRequest, "quota %d", quota)
	}
	_, err := l.CreateScheduleDay(CreateScheduleDayRequest{Specialty: "cardiology", Quota: 1})
	require.ErrorIs(t, err, ErrInvalidRequest)

	assert.Empty(t, l.ListScheduleDays())
	assert.Empty(t, pub.types())
}

func TestCreateScheduleDayMaxQuotaStaysInsideDay(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())

	day := createDay(t, l, "cardiology", baseTime, MaxQuota)
	assert.Equal(t, "23:30", day.Slots[len(day.Slots)-1].Time)

	empty := createDay(t, l, "cardiology", baseTime, 0)
	assert.Empty(t, empty.Slots)
}

func TestBookSlotScenario(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime.Add(24*time.Hour), 2)

	b, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "08:00", Type: "consulta"})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, b.Status)
	assert.Equal(t, PriorityNormal, b.Priority)
	assert.Equal(t, day.Date, b.Date)

	got, err := l.GetScheduleDay(day.ID)
	require.NoError(t, err)
	assert.False(t, got.Slots[0].Available)
	assert.Equal(t, "P1", got.Slots[0].PatientID)
	assert.Equal(t, 1, got.UsedQuota)

	_, err = l.BookSlot(BookingRequest{PatientID: "P2", ScheduleDayID: day.ID, Time: "08:00"})
	require.ErrorIs(t, err, ErrSlotUnavailable)

	got, err = l.GetScheduleDay(day.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedQuota)
	assert.Equal(t, "P1", got.Slots[0].PatientID)
	assert.Len(t, l.ListBookings(), 1)
	assertQuotaInvariant(t, l)
}

func TestBookSlotNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime, 1)

	_, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: "missing", Time: "08:00"})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrScheduleDayNotFound)

	_, err = l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "12:00"})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrSlotNotFound)

	assert.Empty(t, l.ListBookings())
}

func TestBookSlotRejectsTerminalInitialStatus(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime, 1)

	for _, status := range []BookingStatus{StatusCancelled, StatusCompleted, StatusNoShow, "bogus"} {
		_, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "08:00", Status: status})
		require.ErrorIs(t, err, ErrInvalidRequest, "status %q", status)
	}

	_, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "08:00", Priority: "vip"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	got, err := l.GetScheduleDay(day.ID)
	require.NoError(t, err)
	assert.True(t, got.Slots[0].Available)
	assert.Equal(t, 0, got.UsedQuota)

	b, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "08:00", Status: StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
}

func TestBookSlotConcurrentCallersNeverDoubleBook(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime, 4)

	const callers = 64
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clock := day.Slots[i%len(day.Slots)].Time
			_, err := l.BookSlot(BookingRequest{
				PatientID:     fmt.Sprintf("P%d", i),
				ScheduleDayID: day.ID,
				Time:          clock,
			})
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(len(day.Slots)), succeeded.Load())

	perSlot := map[string]int{}
	for _, b := range l.ListBookings() {
		perSlot[b.Time]++
	}
	for _, slot := range day.Slots {
		assert.Equal(t, 1, perSlot[slot.Time], slot.Time)
	}
	assertQuotaInvariant(t, l)
}

func TestBookSlotResolvesWaitlistAcrossSpecialties(t *testing.T) {
	l, clock, pub := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime, 2)

	derm, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P2", Specialty: "dermatology", PriorityRank: 4})
	require.NoError(t, err)
	gaveUp, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P2", Specialty: "neurology", PriorityRank: 1, Status: WaitlistGaveUp})
	require.NoError(t, err)
	other, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P3", Specialty: "dermatology", PriorityRank: 2})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	b, err := l.BookSlot(BookingRequest{PatientID: "P2", ScheduleDayID: day.ID, Time: "08:30"})
	require.NoError(t, err)

	got, err := l.GetWaitlistEntry(derm.ID)
	require.NoError(t, err)
	assert.Equal(t, WaitlistScheduled, got.Status)
	require.NotNil(t, got.LastContactAt)
	assert.Equal(t, baseTime.Add(time.Minute), *got.LastContactAt)

	got, err = l.GetWaitlistEntry(gaveUp.ID)
	require.NoError(t, err)
	assert.Equal(t, WaitlistGaveUp, got.Status)

	got, err = l.GetWaitlistEntry(other.ID)
	require.NoError(t, err)
	assert.Equal(t, WaitlistWaiting, got.Status)

	pub.mu.Lock()
	last := pub.evs[len(pub.evs)-1]
	pub.mu.Unlock()
	assert.Equal(t, events.WaitlistEntryChanged, last.Type)
	assert.Equal(t, b.ID, last.Payload["booking_id"])
	assert.Equal(t, "P2", last.PatientID)
}

func TestWaitlistOrderingIndependentOfInsertion(t *testing.T) {
	entries := []WaitlistEntry{
		{ID: "w-rank4", PatientID: "P1", Specialty: "dermatology", PriorityRank: 4, IncludedAt: baseTime},
		{ID: "w-rank2-late", PatientID: "P2", Specialty: "Dermatology", PriorityRank: 2, IncludedAt: baseTime.Add(time.Hour)},
		{ID: "w-rank2-early", PatientID: "P3", Specialty: "dermatology ", PriorityRank: 2, IncludedAt: baseTime},
		{ID: "w-cardio", PatientID: "P4", Specialty: "cardiology", PriorityRank: 1, IncludedAt: baseTime},
	}
	want := []string{"w-rank2-early", "w-rank2-late", "w-rank4"}

	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}}
	for _, order := range orders {
		l, _, _ := newTestLedger(t, DefaultConfig())
		for _, i := range order {
			_, err := l.AddToWaitlist(entries[i])
			require.NoError(t, err)
		}

		var ids []string
		for _, e := range l.ListWaitlistBySpecialty("DERMATOLOGY") {
			ids = append(ids, e.ID)
		}
		assert.Equal(t, want, ids, "insertion order %v", order)
	}
}

func TestWaitlistRankTwoBeforeRankFour(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())

	_, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P1", Specialty: "dermatology", PriorityRank: 4})
	require.NoError(t, err)
	second, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P2", Specialty: "dermatology", PriorityRank: 2})
	require.NoError(t, err)

	list := l.ListWaitlistBySpecialty("dermatology")
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestAddToWaitlistDefaultsAndValidation(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())

	entry, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P1", Specialty: "cardiology", PriorityRank: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, WaitlistWaiting, entry.Status)
	assert.Equal(t, baseTime, entry.IncludedAt)

	for _, rank := range []int{0, 11} {
		_, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P1", Specialty: "cardiology", PriorityRank: rank})
		require.ErrorIs(t, err, ErrInvalidRequest)
	}
	_, err = l.AddToWaitlist(WaitlistEntry{PatientID: "P1", PriorityRank: 1, Status: "lost"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	entry.PriorityRank = 1
	_, err = l.AddToWaitlist(entry)
	require.NoError(t, err)
	all := l.ListWaitlist()
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].PriorityRank)
}

func TestWaitlistContactAndTransitions(t *testing.T) {
	l, clock, _ := newTestLedger(t, DefaultConfig())
	entry, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P1", Specialty: "cardiology", PriorityRank: 3})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	got, err := l.RecordContactAttempt(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, WaitlistContacted, got.Status)
	assert.Equal(t, 1, got.ContactAttempts)
	require.NotNil(t, got.LastContactAt)
	assert.Equal(t, baseTime.Add(time.Hour), *got.LastContactAt)

	got, err = l.RecordContactAttempt(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ContactAttempts)

	_, err = l.TransitionWaitlistEntry(entry.ID, WaitlistWaiting)
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err = l.TransitionWaitlistEntry(entry.ID, WaitlistGaveUp)
	require.NoError(t, err)
	assert.Equal(t, WaitlistGaveUp, got.Status)

	_, err = l.RecordContactAttempt(entry.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = l.TransitionWaitlistEntry(entry.ID, WaitlistScheduled)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = l.RecordContactAttempt("missing")
	require.ErrorIs(t, err, ErrWaitlistEntryNotFound)
}

func TestReadIsolation(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	createDay(t, l, "cardiology", baseTime, 2)
	require.NoError(t, l.RegisterProfessional(Professional{ID: "prof-1", Specialties: []string{"cardiology"}}))
	entry, err := l.AddToWaitlist(WaitlistEntry{PatientID: "P1", Specialty: "cardiology", PriorityRank: 1, Criteria: []string{"idoso"}})
	require.NoError(t, err)

	days := l.ListAvailableScheduleDays("cardiology", baseTime)
	require.Len(t, days, 1)
	days[0].Slots[0].Available = false
	days[0].Slots[0].PatientID = "intruder"
	days[0].UsedQuota = 99
	days[0].Blocked = true

	again := l.ListAvailableScheduleDays("cardiology", baseTime)
	require.Len(t, again, 1)
	assert.True(t, again[0].Slots[0].Available)
	assert.Empty(t, again[0].Slots[0].PatientID)
	assert.Equal(t, 0, again[0].UsedQuota)

	prof, err := l.GetProfessional("prof-1")
	require.NoError(t, err)
	prof.Specialties[0] = "changed"
	prof, err = l.GetProfessional("prof-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cardiology"}, prof.Specialties)

	entry.Criteria[0] = "changed"
	stored, err := l.GetWaitlistEntry(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"idoso"}, stored.Criteria)

	snap := l.Snapshot()
	snap.ScheduleDays[0].Slots[1].Available = false
	assert.True(t, l.ListScheduleDays()[0].Slots[1].Available)
}

func TestRegisterPatientIsIdempotent(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())

	first := l.RegisterPatient(Patient{ID: "P1", Name: "Maria"})
	assert.Equal(t, "P1", first.ID)
	l.RegisterPatient(Patient{ID: "P1", Name: "Maria Silva"})

	patients := l.ListPatients()
	require.Len(t, patients, 1)
	assert.Equal(t, "Maria Silva", patients[0].Name)

	generated := l.RegisterPatient(Patient{Name: "João"})
	assert.NotEmpty(t, generated.ID)
	assert.Len(t, l.ListPatients(), 2)

	_, err := l.GetPatient("nobody")
	require.ErrorIs(t, err, ErrPatientNotFound)
}

func TestRegisterProfessionalAndFacility(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())

	require.ErrorIs(t, l.RegisterProfessional(Professional{Name: "no id"}), ErrInvalidRequest)
	require.ErrorIs(t, l.RegisterProfessional(Professional{ID: "p", Specialties: []string{""}}), ErrInvalidRequest)
	require.ErrorIs(t, l.RegisterFacility(Facility{Name: "no id"}), ErrInvalidRequest)

	require.NoError(t, l.RegisterProfessional(Professional{ID: "prof-1", Name: "Ana", Active: true}))
	require.NoError(t, l.RegisterProfessional(Professional{ID: "prof-1", Name: "Ana Souza", Active: true}))
	require.NoError(t, l.RegisterFacility(Facility{ID: "fac-1", Name: "UBS", Active: true}))

	profs := l.ListProfessionals()
	require.Len(t, profs, 1)
	assert.Equal(t, "Ana Souza", profs[0].Name)

	p, err := l.SetProfessionalActive("prof-1", false)
	require.NoError(t, err)
	assert.False(t, p.Active)
	f, err := l.SetFacilityActive("fac-1", false)
	require.NoError(t, err)
	assert.False(t, f.Active)

	_, err = l.SetFacilityActive("missing", true)
	require.ErrorIs(t, err, ErrFacilityNotFound)
	_, err = l.GetProfessional("missing")
	require.ErrorIs(t, err, ErrProfessionalNotFound)
}

func TestListAvailableScheduleDaysFilters(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())

	past := createDay(t, l, "cardiology", baseTime.Add(-24*time.Hour), 2)
	today := createDay(t, l, "Cardiology", baseTime, 2)
	full := createDay(t, l, "cardiology", baseTime.Add(48*time.Hour), 1)
	blocked := createDay(t, l, "cardiology", baseTime.Add(72*time.Hour), 2)
	derm := createDay(t, l, "dermatology", baseTime.Add(24*time.Hour), 2)
	later := createDay(t, l, "cardiology", baseTime.Add(96*time.Hour), 2)

	_, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: full.ID, Time: "08:00"})
	require.NoError(t, err)
	_, err = l.SetScheduleDayBlocked(blocked.ID, true, "feriado")
	require.NoError(t, err)

	// time of day on the reference is ignored
	var ids []string
	for _, d := range l.ListAvailableScheduleDays(" cardiology", baseTime.Add(10*time.Hour)) {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{today.ID, later.ID}, ids)
	assert.NotContains(t, ids, past.ID)
	assert.NotContains(t, ids, derm.ID)
}

func TestSetScheduleDayBlocked(t *testing.T) {
	l, clock, pub := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime, 1)

	clock.Advance(time.Minute)
	got, err := l.SetScheduleDayBlocked(day.ID, true, "reforma")
	require.NoError(t, err)
	assert.True(t, got.Blocked)
	assert.Equal(t, "reforma", got.BlockReason)
	assert.Equal(t, baseTime.Add(time.Minute), got.UpdatedAt)

	got, err = l.SetScheduleDayBlocked(day.ID, false, "ignored")
	require.NoError(t, err)
	assert.False(t, got.Blocked)
	assert.Empty(t, got.BlockReason)

	_, err = l.SetScheduleDayBlocked("missing", true, "")
	require.ErrorIs(t, err, ErrScheduleDayNotFound)

	assert.Equal(t, []events.Type{
		events.ScheduleDayCreated, events.ScheduleDayBlocked, events.ScheduleDayUnblocked,
	}, pub.types())
}

func TestTransitionBooking(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime, 1)

	b, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "08:00"})
	require.NoError(t, err)

	b, err = l.TransitionBooking(b.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)

	b, err = l.TransitionBooking(b.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, b.Status)

	_, err = l.TransitionBooking(b.ID, StatusScheduled)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = l.TransitionBooking(b.ID, StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = l.TransitionBooking(b.ID, "archived")
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = l.TransitionBooking("missing", StatusConfirmed)
	require.ErrorIs(t, err, ErrBookingNotFound)

	got, err := l.GetScheduleDay(day.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedQuota)
}

func TestCancelReleasesSlotForRebooking(t *testing.T) {
	l, _, pub := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime.Add(48*time.Hour), 1)

	b, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "08:00"})
	require.NoError(t, err)

	cancelled, err := l.TransitionBooking(b.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	got, err := l.GetScheduleDay(day.ID)
	require.NoError(t, err)
	assert.True(t, got.Slots[0].Available)
	assert.Empty(t, got.Slots[0].PatientID)
	assert.Equal(t, 0, got.UsedQuota)

	rebooked, err := l.BookSlot(BookingRequest{PatientID: "P2", ScheduleDayID: day.ID, Time: "08:00"})
	require.NoError(t, err)
	assert.Equal(t, "P2", rebooked.PatientID)
	assertQuotaInvariant(t, l)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	var change events.Event
	for _, ev := range pub.evs {
		if ev.Type == events.BookingStatusChanged {
			change = ev
		}
	}
	assert.Equal(t, "scheduled", change.Payload["from"])
	assert.Equal(t, "cancelled", change.Payload["to"])
}

func TestCancelBookingWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CancellationMinHours = 2
	l, _, _ := newTestLedger(t, cfg)
	day := createDay(t, l, "cardiology", baseTime, 4)

	// baseTime is 09:00, so the 09:30 slot starts in 30 minutes
	soon, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "09:30"})
	require.NoError(t, err)
	_, err = l.CancelBooking(soon.ID, baseTime)
	require.ErrorIs(t, err, ErrCancellationTooLate)
	require.ErrorIs(t, err, ErrInvalidRequest)

	later, err := l.BookSlot(BookingRequest{PatientID: "P2", ScheduleDayID: day.ID, Time: "09:30"})
	require.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Empty(t, later.ID)

	tomorrow := createDay(t, l, "cardiology", baseTime.Add(24*time.Hour), 1)
	ok, err := l.BookSlot(BookingRequest{PatientID: "P2", ScheduleDayID: tomorrow.ID, Time: "08:00"})
	require.NoError(t, err)
	cancelled, err := l.CancelBooking(ok.ID, baseTime)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = l.CancelBooking(ok.ID, baseTime)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = l.CancelBooking("missing", baseTime)
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestNoShowFlagging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNoShows = 2
	l, _, _ := newTestLedger(t, cfg)
	day := createDay(t, l, "cardiology", baseTime, 3)

	for i, slot := range day.Slots[:2] {
		b, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: slot.Time})
		require.NoError(t, err)
		_, err = l.TransitionBooking(b.ID, StatusNoShow)
		require.NoError(t, err)
		assert.Equal(t, i+1, l.NoShowCount("P1"))
	}
	assert.True(t, l.IsPatientFlagged("P1"))
	assert.False(t, l.IsPatientFlagged("P2"))

	cfg.MaxNoShows = 0
	l.SetConfig(cfg)
	assert.False(t, l.IsPatientFlagged("P1"))

	// no-show keeps the slot bound
	got, err := l.GetScheduleDay(day.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsedQuota)
}

func TestDueReminders(t *testing.T) {
	l, _, pub := newTestLedger(t, DefaultConfig())
	today := createDay(t, l, "cardiology", baseTime, 7)
	tomorrow := createDay(t, l, "cardiology", baseTime.Add(24*time.Hour), 6)
	farAway := createDay(t, l, "cardiology", baseTime.Add(72*time.Hour), 1)

	// 10:30 today is inside both windows, 08:30 tomorrow only inside 24h
	soon, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: today.ID, Time: "10:30"})
	require.NoError(t, err)
	next, err := l.BookSlot(BookingRequest{PatientID: "P2", ScheduleDayID: tomorrow.ID, Time: "08:30"})
	require.NoError(t, err)
	_, err = l.BookSlot(BookingRequest{PatientID: "P3", ScheduleDayID: farAway.ID, Time: "08:00"})
	require.NoError(t, err)
	past, err := l.BookSlot(BookingRequest{PatientID: "P4", ScheduleDayID: today.ID, Time: "08:00"})
	require.NoError(t, err)
	cancelled, err := l.BookSlot(BookingRequest{PatientID: "P5", ScheduleDayID: today.ID, Time: "11:00"})
	require.NoError(t, err)
	_, err = l.TransitionBooking(cancelled.ID, StatusCancelled)
	require.NoError(t, err)

	due := l.DueReminders(baseTime)
	got := map[string][]ReminderKind{}
	for _, r := range due {
		got[r.BookingID] = append(got[r.BookingID], r.Kind)
	}
	assert.Equal(t, map[string][]ReminderKind{
		soon.ID: {Reminder2h, Reminder24h},
		next.ID: {Reminder24h},
	}, got)
	assert.NotContains(t, got, past.ID)

	marked, err := l.MarkReminderSent(soon.ID, Reminder2h)
	require.NoError(t, err)
	assert.True(t, marked.NotificationSent)
	assert.Equal(t, []ReminderKind{Reminder2h}, marked.RemindersSent)

	again, err := l.MarkReminderSent(soon.ID, Reminder2h)
	require.NoError(t, err)
	assert.Equal(t, []ReminderKind{Reminder2h}, again.RemindersSent)

	dispatched := 0
	for _, typ := range pub.types() {
		if typ == events.ReminderDispatched {
			dispatched++
		}
	}
	assert.Equal(t, 1, dispatched)

	cfg := DefaultConfig()
	cfg.Reminder24h = false
	l.SetConfig(cfg)
	assert.Empty(t, l.DueReminders(baseTime))

	_, err = l.MarkReminderSent("missing", Reminder24h)
	require.ErrorIs(t, err, ErrBookingNotFound)
	_, err = l.MarkReminderSent(soon.ID, "1w")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestConfigReplaceAndSnapshot(t *testing.T) {
	l, _, pub := newTestLedger(t, DefaultConfig())
	assert.Equal(t, DefaultConfig(), l.GetConfig())

	cfg := Config{MinLeadDays: 2, MaxLeadDays: 30, NotifyWhatsApp: true}
	l.SetConfig(cfg)
	assert.Equal(t, cfg, l.GetConfig())
	assert.Equal(t, []events.Type{events.ConfigUpdated}, pub.types())

	l.RegisterPatient(Patient{ID: "P1"})
	require.NoError(t, l.RegisterFacility(Facility{ID: "fac-1"}))
	day := createDay(t, l, "cardiology", baseTime, 1)
	_, err := l.BookSlot(BookingRequest{PatientID: "P1", ScheduleDayID: day.ID, Time: "08:00"})
	require.NoError(t, err)

	snap := l.Snapshot()
	assert.Len(t, snap.Patients, 1)
	assert.Len(t, snap.Facilities, 1)
	assert.Empty(t, snap.Professionals)
	assert.Len(t, snap.ScheduleDays, 1)
	assert.Len(t, snap.Bookings, 1)
	assert.Empty(t, snap.Waitlist)
	assert.Equal(t, cfg, snap.Config)
}

func TestBookingTransitionTable(t *testing.T) {
	assert.True(t, StatusScheduled.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusNoShow))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusScheduled))
	assert.False(t, StatusScheduled.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusNoShow.Terminal())
	assert.False(t, StatusConfirmed.Terminal())

	assert.True(t, WaitlistWaiting.CanTransitionTo(WaitlistScheduled))
	assert.False(t, WaitlistContacted.CanTransitionTo(WaitlistWaiting))
	assert.True(t, WaitlistGaveUp.Terminal())
}

func TestListAvailableScheduleDaysComparesCalendarDates(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC), 2)

	bogota := time.FixedZone("UTC-5", -5*60*60)
	got := l.ListAvailableScheduleDays("cardiology", time.Date(2026, time.March, 10, 9, 0, 0, 0, bogota))
	require.Len(t, got, 1)
	assert.Equal(t, day.ID, got[0].ID)

	// 2026-03-10 21:30 UTC is already March 11 in UTC+3
	moscow := time.FixedZone("UTC+3", 3*60*60)
	assert.Empty(t, l.ListAvailableScheduleDays("cardiology", time.Date(2026, time.March, 11, 0, 30, 0, 0, moscow)))
}

func TestBookSlotTrimsIdentifiers(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	day := createDay(t, l, "cardiology", baseTime, 1)

	b, err := l.BookSlot(BookingRequest{PatientID: " P1 ", ScheduleDayID: " " + day.ID + "\t", Time: " 08:00 "})
	require.NoError(t, err)
	assert.Equal(t, "P1", b.PatientID)
	assert.Equal(t, day.ID, b.ScheduleDayID)
	assert.Equal(t, "08:00", b.Time)
}
