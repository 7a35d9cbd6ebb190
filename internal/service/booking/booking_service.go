package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleBooking      = errors.New("booking changed concurrently")
	ErrAlreadyProcessing = errors.New("booking is already being processed")
	ErrNoCompany         = errors.New("no company profile for this account")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrPilotUnavailable  = errors.New("pilot is not available for this booking")
	ErrValidation        = errors.New("validation failed")
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	ResolveCompany(ctx context.Context, s domain.Session) (domain.Session, error)
	ListForCompany(ctx context.Context, s domain.Session) ([]domain.Booking, error)
	ListAll(ctx context.Context, s domain.Session) ([]domain.Booking, error)
	Confirm(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
	Complete(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
	AssignPilot(ctx context.Context, s domain.Session, id, pilotID string) (*domain.Booking, error)
	MarkSeen(ctx context.Context, s domain.Session, id string) (*domain.Booking, error)
	DeleteBooking(ctx context.Context, s domain.Session, id string) error
}

// Cache holds the cross-instance processing lock.
type Cache interface {
	AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseBookingLock(ctx context.Context, bookingID, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings     repository.BookingRepository
	pilots       repository.PilotRepository
	companies    repository.CompanyRepository
	cache        Cache
	producer     Producer
	changesTopic string
	lockTTL      time.Duration
	inflight     *processingGuard
	logger       *zap.Logger
}

type CreateBookingInput struct {
	CustomerName   string                `json:"customer_name"`
	Phone          string                `json:"phone"`
	CountryID      *string               `json:"country_id"`
	LocationID     *string               `json:"location_id"`
	CompanyID      string                `json:"company_id"`
	FlightTypeID   string                `json:"flight_type_id"`
	FlightTypeName string                `json:"flight_type_name"`
	SelectedDate   string                `json:"selected_date"`
	People         int                   `json:"number_of_people"`
	ContactMethod  domain.ContactChannel `json:"contact_method"`
	SpecialRequest string                `json:"special_requests"`
	Currency       string                `json:"currency"`
	BasePrice      float64               `json:"base_price"`
	PromoCode      string                `json:"promo_code"`
	PromoDiscount  float64               `json:"promo_discount"`
}

type BookingServiceOption func(*BookingService)

// WithLockCache adds a shared processing lock on top of the in-process one.
func WithLockCache(cache Cache, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
		s.lockTTL = ttl
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	pilots repository.PilotRepository,
	companies repository.CompanyRepository,
	producer Producer,
	changesTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		pilots:       pilots,
		companies:    companies,
		producer:     producer,
		changesTopic: changesTopic,
		lockTTL:      30 * time.Second,
		inflight:     newProcessingGuard(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	total := roundMoney(input.BasePrice * float64(input.People) * (1 - input.PromoDiscount/100))
	companyID := input.CompanyID
	booking := &domain.Booking{
		CustomerName:   input.CustomerName,
		Phone:          input.Phone,
		CountryID:      input.CountryID,
		LocationID:     input.LocationID,
		CompanyID:      &companyID,
		FlightTypeID:   input.FlightTypeID,
		FlightTypeName: input.FlightTypeName,
		SelectedDate:   input.SelectedDate,
		People:         input.People,
		ContactMethod:  input.ContactMethod,
		SpecialRequest: input.SpecialRequest,
		Currency:       input.Currency,
		BasePrice:      input.BasePrice,
		TotalPrice:     total,
		PromoCode:      input.PromoCode,
		PromoDiscount:  input.PromoDiscount,
		Status:         domain.BookingStatusPending,
		AmountDue:      total,
		PaymentStatus:  domain.PaymentUnpaid,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, fmt.Errorf("%w: unknown company, country or location", ErrValidation)
		}
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("company_id", companyID),
		zap.String("selected_date", booking.SelectedDate))
	s.publish(ctx, domain.ChangeInsert, booking)
	return booking, nil
}

func validateCreate(in *CreateBookingInput) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))

	switch {
	case in.CustomerName == "":
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	case in.Phone == "":
		return fmt.Errorf("%w: phone is required", ErrValidation)
	case strings.ContainsAny(in.CustomerName, "\r\n"):
		return fmt.Errorf("%w: customer name must be a single line", ErrValidation)
	case strings.ContainsAny(in.Phone, "\r\n"):
		return fmt.Errorf("%w: phone must be a single line", ErrValidation)
	case !validID(in.CompanyID):
		return fmt.Errorf("%w: company_id must be a valid id", ErrValidation)
	case in.CountryID != nil && !validID(*in.CountryID):
		return fmt.Errorf("%w: country_id must be a valid id", ErrValidation)
	case in.LocationID != nil && !validID(*in.LocationID):
		return fmt.Errorf("%w: location_id must be a valid id", ErrValidation)
	case in.People <= 0:
		return fmt.Errorf("%w: number of people must be positive", ErrValidation)
	case in.BasePrice < 0:
		return fmt.Errorf("%w: base price must not be negative", ErrValidation)
	}
	if _, err := time.Parse(domain.DateLayout, in.SelectedDate); err != nil {
		return fmt.Errorf("%w: selected_date must be YYYY-MM-DD", ErrValidation)
	}
	if in.ContactMethod == "" {
		in.ContactMethod = domain.ContactNone
	}
	if !in.ContactMethod.Valid() {
		return fmt.Errorf("%w: unknown contact method %q", ErrValidation, in.ContactMethod)
	}
	if in.Currency == "" {
		in.Currency = "GEL"
	}
	in.PromoDiscount = math.Max(0, math.Min(100, in.PromoDiscount))
	if in.PromoCode == "" {
		in.PromoDiscount = 0
	}
	return nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ResolveCompany fills in the company of a company-role session.
func (s *BookingService) ResolveCompany(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if !sess.Authenticated() {
		return sess, ErrUnauthenticated
	}
	switch sess.Role {
	case domain.RoleAdmin:
		return sess, nil
	case domain.RoleCompany:
	default:
		return sess, ErrForbidden
	}
	if sess.CompanyID != "" {
		return sess, nil
	}

	company, err := s.companies.GetByOwner(ctx, sess.ActorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return sess, ErrNoCompany
		}
		return sess, err
	}
	sess.CompanyID = company.ID
	return sess, nil
}

func (s *BookingService) ListForCompany(ctx context.Context, sess domain.Session) ([]domain.Booking, error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if sess.CompanyID == "" {
		return nil, ErrNoCompany
	}
	return s.bookings.ListByCompany(ctx, sess.CompanyID)
}

func (s *BookingService) ListAll(ctx context.Context, sess domain.Session) ([]domain.Booking, error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if sess.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.bookings.ListAll(ctx)
}

// Confirm marks the booking seen by the acting role and then confirms it.
func (s *BookingService) Confirm(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error) {
	return s.transition(ctx, sess, id, domain.BookingStatusConfirmed, func(ctx context.Context, _ *domain.Booking) error {
		if _, err := s.bookings.MarkSeen(ctx, id, sess.Role); err != nil {
			return fmt.Errorf("mark seen before confirm: %w", err)
		}
		return nil
	})
}

func (s *BookingService) Cancel(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error) {
	return s.transition(ctx, sess, id, domain.BookingStatusCancelled, nil)
}

func (s *BookingService) Complete(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error) {
	return s.transition(ctx, sess, id, domain.BookingStatusCompleted, nil)
}

func (s *BookingService) transition(
	ctx context.Context,
	sess domain.Session,
	id string,
	to domain.BookingStatus,
	before func(context.Context, *domain.Booking) error,
) (*domain.Booking, error) {
	release, err := s.begin(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.loadManaged(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	if before != nil {
		if err := before(ctx, current); err != nil {
			return nil, err
		}
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStaleBooking
		}
		return nil, err
	}

	s.logger.Info("booking status changed",
		zap.String("booking_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("actor_id", sess.ActorID))
	s.publish(ctx, domain.ChangeUpdate, updated)
	return updated, nil
}

func (s *BookingService) AssignPilot(ctx context.Context, sess domain.Session, id, pilotID string) (*domain.Booking, error) {
	release, err := s.begin(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.loadManaged(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot assign a pilot to a %s booking", ErrInvalidTransition, current.Status)
	}

	if !validID(pilotID) {
		return nil, ErrPilotUnavailable
	}
	pilot, err := s.pilots.GetByID(ctx, pilotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPilotUnavailable
		}
		return nil, err
	}
	if pilot.Status != domain.PilotStatusVerified || pilot.CompanyID == nil ||
		current.CompanyID == nil || *pilot.CompanyID != *current.CompanyID {
		return nil, ErrPilotUnavailable
	}

	updated, err := s.bookings.AssignPilot(ctx, id, pilotID, sess.ActorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStaleBooking
		}
		return nil, err
	}

	s.logger.Info("pilot assigned",
		zap.String("booking_id", id),
		zap.String("pilot_id", pilotID),
		zap.String("actor_id", sess.ActorID))
	s.publish(ctx, domain.ChangeUpdate, updated)
	return updated, nil
}

func (s *BookingService) MarkSeen(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.CanManage(current.CompanyID) && !(sess.Role == domain.RolePilot && current.PilotID != nil && *current.PilotID == sess.ActorID) {
		return nil, ErrForbidden
	}
	if current.SeenBy(sess.Role) {
		return current, nil
	}

	updated, err := s.bookings.MarkSeen(ctx, id, sess.Role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	s.publish(ctx, domain.ChangeUpdate, updated)
	return updated, nil
}

// DeleteBooking hard-deletes a booking. Admin only.
func (s *BookingService) DeleteBooking(ctx context.Context, sess domain.Session, id string) error {
	if !sess.Authenticated() {
		return ErrUnauthenticated
	}
	if sess.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if !validID(id) {
		return ErrBookingNotFound
	}

	deleted, err := s.bookings.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return err
	}

	s.logger.Warn("booking deleted", zap.String("booking_id", id), zap.String("actor_id", sess.ActorID))
	s.publish(ctx, domain.ChangeDelete, deleted)
	return nil
}

// begin takes the processing guard for id. The returned func releases it.
func (s *BookingService) begin(ctx context.Context, sess domain.Session, id string) (func(), error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !validID(id) {
		return nil, ErrBookingNotFound
	}
	if !s.inflight.acquire(id) {
		return nil, ErrAlreadyProcessing
	}

	token := ""
	if s.cache != nil {
		lockToken, ok, err := s.cache.AcquireBookingLock(ctx, id, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("processing lock unavailable, using local guard only", zap.String("booking_id", id), zap.Error(err))
		case !ok:
			s.inflight.release(id)
			return nil, ErrAlreadyProcessing
		default:
			token = lockToken
		}
	}

	return func() {
		if token != "" {
			if err := s.cache.ReleaseBookingLock(context.WithoutCancel(ctx), id, token); err != nil {
				s.logger.Warn("release processing lock", zap.String("booking_id", id), zap.Error(err))
			}
		}
		s.inflight.release(id)
	}, nil
}

func (s *BookingService) load(ctx context.Context, id string) (*domain.Booking, error) {
	if !validID(id) {
		return nil, ErrBookingNotFound
	}
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return current, nil
}

func (s *BookingService) loadManaged(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.CanManage(current.CompanyID) {
		return nil, ErrForbidden
	}
	return current, nil
}

// publish emits a change event. The write already succeeded, so a failed
// publish is logged and not returned.
func (s *BookingService) publish(ctx context.Context, kind domain.ChangeKind, booking *domain.Booking) {
	if s.producer == nil || s.changesTopic == "" {
		return
	}
	event := domain.ChangeEvent{Kind: kind, Table: domain.TableBookings, Row: *booking}
	if err := s.producer.Publish(ctx, s.changesTopic, event.CompanyID(), event); err != nil {
		s.logger.Warn("failed to publish booking change",
			zap.String("kind", string(kind)),
			zap.String("booking_id", booking.ID),
			zap.Error(err))
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var _ BookingUseCase = (*BookingService)(nil)
