// Package dashboard keeps one company's booking list in sync for a single
// viewing session and derives what the screen shows from it.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/i18n"
	"github.com/Domenick1991/paraglide/internal/realtime"
	"github.com/Domenick1991/paraglide/internal/service/booking"
	"go.uber.org/zap"
)

type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

type Toast struct {
	Level   ToastLevel `json:"level"`
	Message string     `json:"message"`
}

// Sink receives what the session shows. Calls may come from the action
// goroutine and the change goroutine at the same time.
type Sink interface {
	Toast(t Toast)
	Render(v View)
}

// Bookings is the part of the booking service a dashboard drives.
type Bookings interface {
	ResolveCompany(ctx context.Context, s domain.Session) (domain.Session, error)
	ListForCompany(ctx context.Context, s domain.Session) ([]domain.Booking, error)
	Confirm(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
	Complete(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
	AssignPilot(ctx context.Context, s domain.Session, id, pilotID string) (*domain.Booking, error)
	MarkSeen(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
}

type Pilots interface {
	Verified(ctx context.Context, companyID string) ([]domain.Pilot, error)
}

type Dashboard struct {
	bookings Bookings
	pilots   Pilots
	broker   *realtime.Broker
	sink     Sink
	logger   *zap.Logger
	now      func() time.Time

	projection *Projection

	mu        sync.Mutex
	session   domain.Session
	state     State
	pilotList []domain.Pilot
	tab       Tab
	search    string
	sub       *realtime.Subscription
}

type Option func(*Dashboard)

func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dashboard) { d.logger = logger }
}

func New(sess domain.Session, bookings Bookings, pilots Pilots, broker *realtime.Broker, sink Sink, opts ...Option) *Dashboard {
	d := &Dashboard{
		bookings:   bookings,
		pilots:     pilots,
		broker:     broker,
		sink:       sink,
		logger:     zap.NewNop(),
		now:        time.Now,
		projection: NewProjection(),
		session:    sess,
		state:      StateReady,
		tab:        TabAll,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open resolves the session's company, loads the bookings and pilots, and
// subscribes to the company's booking changes. A missing company profile is
// not an error: the session shows the no-company state instead.
func (d *Dashboard) Open(ctx context.Context) error {
	sess, err := d.bookings.ResolveCompany(ctx, d.Session())
	switch {
	case errors.Is(err, booking.ErrNoCompany):
		d.setState(StateNoCompany)
		d.sink.Render(d.View())
		return nil
	case errors.Is(err, booking.ErrUnauthenticated):
		d.setState(StateUnauthenticated)
		d.toast(ToastError, i18n.Unauthenticated)
		return err
	case err != nil:
		d.logger.Error("resolve company", zap.String("actor_id", d.Session().ActorID), zap.Error(err))
		d.toast(ToastError, i18n.LoadFailed)
		return err
	}
	if sess.CompanyID == "" {
		d.setState(StateNoCompany)
		d.sink.Render(d.View())
		return nil
	}

	d.mu.Lock()
	d.session = sess
	d.mu.Unlock()

	d.loadPilots(ctx)
	_ = d.Refresh(ctx)

	d.mu.Lock()
	if d.sub == nil {
		d.sub = d.broker.Subscribe(realtime.Filter{Table: domain.TableBookings, CompanyID: sess.CompanyID}, d.HandleChange)
	}
	d.mu.Unlock()
	return nil
}

// Refresh refetches the whole projection. On failure the previous rows stay.
func (d *Dashboard) Refresh(ctx context.Context) error {
	rows, err := d.bookings.ListForCompany(ctx, d.Session())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		d.logger.Error("load bookings", zap.String("company_id", d.Session().CompanyID), zap.Error(err))
		d.toast(ToastError, i18n.LoadFailed)
		return err
	}
	d.projection.Replace(rows)
	d.sink.Render(d.View())
	return nil
}

func (d *Dashboard) loadPilots(ctx context.Context) {
	pilots, err := d.pilots.Verified(ctx, d.Session().CompanyID)
	if err != nil {
		d.logger.Warn("load pilots", zap.String("company_id", d.Session().CompanyID), zap.Error(err))
		return
	}
	d.mu.Lock()
	d.pilotList = pilots
	d.mu.Unlock()
}

func (d *Dashboard) Confirm(ctx context.Context, id string) error {
	return d.apply(ctx, id, d.bookings.Confirm, i18n.Confirmed)
}

func (d *Dashboard) Cancel(ctx context.Context, id string) error {
	return d.apply(ctx, id, d.bookings.Cancel, i18n.Cancelled)
}

func (d *Dashboard) Complete(ctx context.Context, id string) error {
	return d.apply(ctx, id, d.bookings.Complete, i18n.Completed)
}

type writeFunc func(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)

// apply runs a status write and patches the row only after it succeeded.
func (d *Dashboard) apply(ctx context.Context, id string, write writeFunc, done i18n.Key) error {
	updated, err := write(ctx, d.Session(), id)
	if err != nil {
		d.writeFailed(id, err)
		return err
	}
	d.projection.Patch(*updated)
	d.toast(ToastSuccess, done)
	d.sink.Render(d.View())
	return nil
}

// AssignPilot refetches after the write, since only a read joins the pilot name.
func (d *Dashboard) AssignPilot(ctx context.Context, id, pilotID string) error {
	if _, err := d.bookings.AssignPilot(ctx, d.Session(), id, pilotID); err != nil {
		d.writeFailed(id, err)
		return err
	}
	d.toast(ToastSuccess, i18n.PilotAssigned)
	return d.Refresh(ctx)
}

func (d *Dashboard) MarkSeen(ctx context.Context, id string) error {
	updated, err := d.bookings.MarkSeen(ctx, d.Session(), id)
	if err != nil {
		d.writeFailed(id, err)
		return err
	}
	if d.projection.Patch(*updated) {
		d.sink.Render(d.View())
	}
	return nil
}

func (d *Dashboard) writeFailed(id string, err error) {
	d.logger.Warn("booking write failed", zap.String("booking_id", id), zap.Error(err))
	d.toast(ToastError, failureKey(err))
}

func failureKey(err error) i18n.Key {
	switch {
	case errors.Is(err, booking.ErrAlreadyProcessing):
		return i18n.AlreadyProcessing
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrStaleBooking):
		return i18n.InvalidTransition
	case errors.Is(err, booking.ErrUnauthenticated):
		return i18n.Unauthenticated
	}
	return i18n.UpdateFailed
}

// HandleChange reacts to one booking change of the session's company.
// Inserts and updates refetch because the joined names are only known after
// a read; a delete removes the row locally.
func (d *Dashboard) HandleChange(ctx context.Context, ev domain.ChangeEvent) {
	switch ev.Kind {
	case domain.ChangeInsert:
		d.toast(ToastInfo, i18n.NewBooking, ev.Row.CustomerName)
		_ = d.Refresh(ctx)
	case domain.ChangeUpdate:
		_ = d.Refresh(ctx)
	case domain.ChangeDelete:
		if d.projection.Remove(ev.Row.ID) {
			d.sink.Render(d.View())
		}
	}
}

// SetFilter changes the tab and search term and re-renders.
func (d *Dashboard) SetFilter(tab Tab, search string) {
	d.mu.Lock()
	d.tab = tab
	d.search = search
	d.mu.Unlock()
	d.sink.Render(d.View())
}

func (d *Dashboard) View() View {
	d.mu.Lock()
	sess, state, tab, search := d.session, d.state, d.tab, d.search
	pilots := d.pilotList
	d.mu.Unlock()

	if state != StateReady {
		return View{State: state, Tab: tab, Search: search, Bookings: []Row{}, Pilots: []PilotOption{}}
	}
	return BuildView(sess, d.projection.Snapshot(), pilots, tab, search, d.now())
}

func (d *Dashboard) Session() domain.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Close ends the change subscription. It must not be called from a change
// handler.
func (d *Dashboard) Close() {
	d.mu.Lock()
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (d *Dashboard) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Dashboard) toast(level ToastLevel, key i18n.Key, args ...any) {
	d.sink.Toast(Toast{Level: level, Message: i18n.Text(d.Session().Locale, key, args...)})
}
