package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/i18n"
	"github.com/Domenick1991/paraglide/internal/realtime"
	"github.com/Domenick1991/paraglide/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const companyID = "c1"

// fakeBookings is an in-memory booking service for one company.
type fakeBookings struct {
	mu         sync.Mutex
	rows       []domain.Booking
	pilots     map[string]domain.LocalizedText
	resolveErr error
	listErr    error
	writeErr   error
	lists      int
	clock      time.Time
}

func newFakeBookings(rows ...domain.Booking) *fakeBookings {
	return &fakeBookings{
		rows:   rows,
		pilots: map[string]domain.LocalizedText{"p1": {domain.LocaleEn: "Giorgi"}},
		clock:  t0,
	}
}

func (f *fakeBookings) ResolveCompany(_ context.Context, s domain.Session) (domain.Session, error) {
	if f.resolveErr != nil {
		return s, f.resolveErr
	}
	s.CompanyID = companyID
	return s, nil
}

func (f *fakeBookings) ListForCompany(_ context.Context, _ domain.Session) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Booking, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeBookings) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// update applies fn to the stored row and returns it without joined names,
// like a write returning the bare row.
func (f *fakeBookings) update(id string, fn func(b *domain.Booking)) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.clock = f.clock.Add(time.Second)
			fn(&f.rows[i])
			f.rows[i].UpdatedAt = f.clock
			bare := f.rows[i]
			bare.PilotName, bare.LocationName, bare.CountryName = nil, nil, nil
			return &bare, nil
		}
	}
	return nil, booking.ErrBookingNotFound
}

func (f *fakeBookings) Confirm(_ context.Context, s domain.Session, id string) (*domain.Booking, error) {
	return f.update(id, func(b *domain.Booking) {
		b.SeenByCompany = true
		b.Status = domain.BookingStatusConfirmed
	})
}

func (f *fakeBookings) Cancel(_ context.Context, _ domain.Session, id string) (*domain.Booking, error) {
	return f.update(id, func(b *domain.Booking) { b.Status = domain.BookingStatusCancelled })
}

func (f *fakeBookings) Complete(_ context.Context, _ domain.Session, id string) (*domain.Booking, error) {
	return f.update(id, func(b *domain.Booking) { b.Status = domain.BookingStatusCompleted })
}

func (f *fakeBookings) AssignPilot(_ context.Context, _ domain.Session, id, pilotID string) (*domain.Booking, error) {
	return f.update(id, func(b *domain.Booking) {
		b.PilotID = &pilotID
		b.PilotName = f.pilots[pilotID]
	})
}

func (f *fakeBookings) MarkSeen(_ context.Context, _ domain.Session, id string) (*domain.Booking, error) {
	return f.update(id, func(b *domain.Booking) { b.SeenByCompany = true })
}

type fakePilots struct {
	err error
}

func (f *fakePilots) Verified(_ context.Context, _ string) ([]domain.Pilot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Pilot{{ID: "p1", Name: domain.LocalizedText{domain.LocaleEn: "Giorgi"}, Status: domain.PilotStatusVerified}}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	toasts []Toast
	views  []View
}

func (s *recordingSink) Toast(t Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, t)
}

func (s *recordingSink) Render(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

func (s *recordingSink) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toast(nil), s.toasts...)
}

func (s *recordingSink) Views() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

type fixture struct {
	bookings *fakeBookings
	pilots   *fakePilots
	broker   *realtime.Broker
	sink     *recordingSink
	dash     *Dashboard
}

func newFixture(t *testing.T, rows ...domain.Booking) *fixture {
	t.Helper()
	f := &fixture{
		bookings: newFakeBookings(rows...),
		pilots:   &fakePilots{},
		broker:   realtime.NewBroker(zap.NewNop()),
		sink:     &recordingSink{},
	}
	sess := domain.Session{ActorID: "owner-1", Role: domain.RoleCompany, Locale: domain.LocaleEn}
	f.dash = New(sess, f.bookings, f.pilots, f.broker, f.sink,
		WithLogger(zap.NewNop()),
		WithClock(func() time.Time { return t0 }))
	t.Cleanup(f.dash.Close)
	return f
}

func companyRows() []domain.Booking {
	cid := companyID
	return []domain.Booking{
		{ID: "b1", CompanyID: &cid, CustomerName: "Ana Smith", Status: domain.BookingStatusPending, SelectedDate: "2026-10-18", UpdatedAt: t0,
			LocationName: domain.LocalizedText{domain.LocaleEn: "Gudauri"}},
		{ID: "b2", CompanyID: &cid, CustomerName: "Levan", Status: domain.BookingStatusPending, SelectedDate: "2026-10-20", UpdatedAt: t0},
		{ID: "b3", CompanyID: &cid, CustomerName: "John", Status: domain.BookingStatusConfirmed, SelectedDate: "2026-10-21", UpdatedAt: t0},
	}
}

func (f *fixture) open(t *testing.T) {
	t.Helper()
	require.NoError(t, f.dash.Open(context.Background()))
}

func TestDashboard_Open(t *testing.T) {
	f := newFixture(t, companyRows()...)

	f.open(t)

	v := f.dash.View()
	assert.Equal(t, StateReady, v.State)
	assert.Len(t, v.Bookings, 3)
	assert.Equal(t, []PilotOption{{ID: "p1", Name: "Giorgi"}}, v.Pilots)
	assert.Equal(t, companyID, f.dash.Session().CompanyID)
	assert.Equal(t, 1, f.broker.Subscribers())
	assert.Equal(t, 1, f.bookings.listCount())
	assert.Empty(t, f.sink.Toasts())
}

func TestDashboard_OpenWithoutCompany(t *testing.T) {
	f := newFixture(t)
	f.bookings.resolveErr = booking.ErrNoCompany

	err := f.dash.Open(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, StateNoCompany, f.dash.View().State)
	assert.Equal(t, 0, f.broker.Subscribers())
	assert.Equal(t, 0, f.bookings.listCount())
	assert.Empty(t, f.sink.Toasts())
	assert.Equal(t, 1, f.sink.Views())
}

func TestDashboard_OpenUnauthenticated(t *testing.T) {
	f := newFixture(t)
	f.bookings.resolveErr = booking.ErrUnauthenticated

	err := f.dash.Open(context.Background())

	assert.ErrorIs(t, err, booking.ErrUnauthenticated)
	assert.Equal(t, StateUnauthenticated, f.dash.View().State)
	require.Len(t, f.sink.Toasts(), 1)
	assert.Equal(t, i18n.Text(domain.LocaleEn, i18n.Unauthenticated), f.sink.Toasts()[0].Message)
	assert.Equal(t, 0, f.bookings.listCount())
}

func TestDashboard_OpenSurvivesPilotFailure(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.pilots.err = errors.New("redis down")

	f.open(t)

	v := f.dash.View()
	assert.Len(t, v.Bookings, 3)
	assert.Empty(t, v.Pilots)
}

func TestDashboard_RefreshFailureKeepsState(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)

	f.bookings.mu.Lock()
	f.bookings.listErr = errors.New("connection reset")
	f.bookings.mu.Unlock()

	err := f.dash.Refresh(context.Background())

	assert.Error(t, err)
	assert.Len(t, f.dash.View().Bookings, 3)
	toasts := f.sink.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastError, toasts[0].Level)
	assert.Equal(t, i18n.Text(domain.LocaleEn, i18n.LoadFailed), toasts[0].Message)
}

func TestDashboard_ConfirmFlow(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	before := f.dash.projection.Snapshot()

	require.NoError(t, f.dash.Confirm(context.Background(), "b1"))

	after := f.dash.projection.Snapshot()
	require.Len(t, after, 3)
	assert.Equal(t, domain.BookingStatusConfirmed, after[0].Status)
	assert.True(t, after[0].SeenByCompany)
	assert.Equal(t, "Gudauri", after[0].LocationName.Resolve(domain.LocaleEn))
	assert.Equal(t, before[1:], after[1:])

	// No refetch: the row was patched locally.
	assert.Equal(t, 1, f.bookings.listCount())
	toasts := f.sink.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastSuccess, toasts[0].Level)
}

func TestDashboard_CancelAndComplete(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)

	require.NoError(t, f.dash.Cancel(context.Background(), "b2"))
	require.NoError(t, f.dash.Complete(context.Background(), "b3"))

	st := f.dash.View().Stats
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Cancelled)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 0, st.Confirmed)
}

func TestDashboard_WriteFailureLeavesRowUntouched(t *testing.T) {
	tests := []struct {
		name string
		err  error
		key  i18n.Key
	}{
		{"processing", booking.ErrAlreadyProcessing, i18n.AlreadyProcessing},
		{"invalid", booking.ErrInvalidTransition, i18n.InvalidTransition},
		{"stale", booking.ErrStaleBooking, i18n.InvalidTransition},
		{"other", errors.New("timeout"), i18n.UpdateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, companyRows()...)
			f.open(t)
			f.bookings.writeErr = tt.err

			err := f.dash.Confirm(context.Background(), "b1")

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, domain.BookingStatusPending, f.dash.projection.Snapshot()[0].Status)
			toasts := f.sink.Toasts()
			require.Len(t, toasts, 1)
			assert.Equal(t, ToastError, toasts[0].Level)
			assert.Equal(t, i18n.Text(domain.LocaleEn, tt.key), toasts[0].Message)
		})
	}
}

func TestDashboard_AssignPilot(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	before := f.dash.View().Stats

	require.NoError(t, f.dash.AssignPilot(context.Background(), "b2", "p1"))

	v := f.dash.View()
	assert.Equal(t, before.Unassigned-1, v.Stats.Unassigned)
	assert.Equal(t, before.Assigned+1, v.Stats.Assigned)
	assert.Equal(t, 2, f.bookings.listCount())

	var row Row
	for _, r := range v.Bookings {
		if r.ID == "b2" {
			row = r
		}
	}
	require.NotNil(t, row.PilotID)
	assert.Equal(t, "p1", *row.PilotID)
	assert.Equal(t, "Giorgi", row.Pilot)
}

func TestDashboard_MarkSeen(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	require.True(t, f.dash.View().Bookings[1].New)

	require.NoError(t, f.dash.MarkSeen(context.Background(), "b2"))

	assert.False(t, f.dash.View().Bookings[1].New)
	assert.Empty(t, f.sink.Toasts())
}

func TestDashboard_DeleteNotification(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	n := f.dash.projection.Len()
	cid := companyID

	f.dash.HandleChange(context.Background(), domain.ChangeEvent{
		Kind:  domain.ChangeDelete,
		Table: domain.TableBookings,
		Row:   domain.Booking{ID: "b2", CompanyID: &cid},
	})

	assert.Equal(t, n-1, f.dash.projection.Len())
	for _, b := range f.dash.projection.Snapshot() {
		assert.NotEqual(t, "b2", b.ID)
	}
	assert.Equal(t, 1, f.bookings.listCount())
}

func TestDashboard_InsertNotification(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	cid := companyID
	inserted := domain.Booking{ID: "b4", CompanyID: &cid, CustomerName: "Nino", Status: domain.BookingStatusPending, UpdatedAt: t0}
	f.bookings.mu.Lock()
	f.bookings.rows = append(f.bookings.rows, inserted)
	f.bookings.mu.Unlock()

	f.dash.HandleChange(context.Background(), domain.ChangeEvent{Kind: domain.ChangeInsert, Table: domain.TableBookings, Row: inserted})

	assert.Equal(t, 2, f.bookings.listCount())
	assert.Equal(t, 4, f.dash.projection.Len())
	toasts := f.sink.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastInfo, toasts[0].Level)
	assert.Equal(t, "New booking: Nino", toasts[0].Message)
}

func TestDashboard_UpdateNotificationRefetches(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)

	f.dash.HandleChange(context.Background(), domain.ChangeEvent{Kind: domain.ChangeUpdate, Table: domain.TableBookings, Row: companyRows()[0]})

	assert.Equal(t, 2, f.bookings.listCount())
	assert.Empty(t, f.sink.Toasts())
}

func TestDashboard_ReceivesChangesThroughBroker(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	cid, other := companyID, "c2"

	f.broker.Dispatch(context.Background(), domain.ChangeEvent{Kind: domain.ChangeDelete, Table: domain.TableBookings, Row: domain.Booking{ID: "b1", CompanyID: &other}})
	f.broker.Dispatch(context.Background(), domain.ChangeEvent{Kind: domain.ChangeDelete, Table: domain.TableBookings, Row: domain.Booking{ID: "b3", CompanyID: &cid}})

	assert.Eventually(t, func() bool { return f.dash.projection.Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"b1", "b2"}, ids(f.dash.projection.Snapshot()))
}

func TestDashboard_Close(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	require.Equal(t, 1, f.broker.Subscribers())

	f.dash.Close()
	f.dash.Close()

	assert.Equal(t, 0, f.broker.Subscribers())
}

func TestDashboard_SetFilter(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)

	f.dash.SetFilter(TabPending, "ANA")

	v := f.dash.View()
	assert.Equal(t, TabPending, v.Tab)
	require.Len(t, v.Bookings, 1)
	assert.Equal(t, "b1", v.Bookings[0].ID)
	assert.Equal(t, 3, v.Stats.Total)
}

func TestDashboard_StatusAlwaysKnown(t *testing.T) {
	f := newFixture(t, companyRows()...)
	f.open(t)
	ctx := context.Background()
	_ = f.dash.Confirm(ctx, "b1")
	_ = f.dash.Cancel(ctx, "b2")
	_ = f.dash.AssignPilot(ctx, "b3", "p1")

	for _, b := range f.dash.projection.Snapshot() {
		_, err := domain.ParseBookingStatus(string(b.Status))
		assert.NoError(t, err, b.ID)
	}
}
