package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when a row points at a country,
	// location, company or pilot that does not exist.
	ErrInvalidReference = errors.New("referenced row does not exist")
)

// Querier is the part of pgxpool.Pool the repositories use.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const foreignKeyViolation = "23503"

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	ListByCompany(ctx context.Context, companyID string) ([]domain.Booking, error)
	ListAll(ctx context.Context) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error)
	AssignPilot(ctx context.Context, id, pilotID, actorID string) (*domain.Booking, error)
	MarkSeen(ctx context.Context, id string, role domain.Role) (*domain.Booking, error)
	Delete(ctx context.Context, id string) (*domain.Booking, error)
}

type PGBookingRepository struct {
	db Querier
}

func NewBookingRepository(db Querier) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `b.id::text, b.customer_name, b.phone, b.country_id::text, b.location_id::text,
	b.flight_type_id, b.flight_type_name, to_char(b.selected_date, 'YYYY-MM-DD'), b.number_of_people,
	b.contact_method, b.special_requests, b.currency, b.base_price::float8, b.total_price::float8,
	b.promo_code, b.promo_discount::float8, b.status,
	b.pilot_id::text, b.company_id::text, b.assigned_by, b.assigned_at,
	b.deposit_amount::float8, b.amount_due::float8, b.payment_status,
	b.seen_by_pilot, b.seen_by_company, b.seen_by_admin, b.seen_at,
	b.reschedule_count, to_char(b.original_date, 'YYYY-MM-DD'), b.reschedule_reason,
	b.created_at, b.updated_at, b.cancelled_at`

const joinedColumns = bookingColumns + `,
	COALESCE(c.name, '{}'::jsonb), COALESCE(l.name, '{}'::jsonb), COALESCE(p.name, '{}'::jsonb)`

const joinedFrom = `FROM bookings b
	LEFT JOIN countries c ON c.id = b.country_id
	LEFT JOIN locations l ON l.id = b.location_id
	LEFT JOIN pilots p ON p.id = b.pilot_id`

func bookingDest(b *domain.Booking) []any {
	return []any{
		&b.ID, &b.CustomerName, &b.Phone, &b.CountryID, &b.LocationID,
		&b.FlightTypeID, &b.FlightTypeName, &b.SelectedDate, &b.People,
		&b.ContactMethod, &b.SpecialRequest, &b.Currency, &b.BasePrice, &b.TotalPrice,
		&b.PromoCode, &b.PromoDiscount, &b.Status,
		&b.PilotID, &b.CompanyID, &b.AssignedBy, &b.AssignedAt,
		&b.DepositAmount, &b.AmountDue, &b.PaymentStatus,
		&b.SeenByPilot, &b.SeenByCompany, &b.SeenByAdmin, &b.SeenAt,
		&b.RescheduleCount, &b.OriginalDate, &b.RescheduleReason,
		&b.CreatedAt, &b.UpdatedAt, &b.CancelledAt,
	}
}

func joinedDest(b *domain.Booking) []any {
	return append(bookingDest(b), &b.CountryName, &b.LocationName, &b.PilotName)
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	row := r.db.QueryRow(ctx, `INSERT INTO bookings AS b (customer_name, phone, country_id, location_id,
		flight_type_id, flight_type_name, selected_date, number_of_people, contact_method, special_requests,
		currency, base_price, total_price, promo_code, promo_discount, status, company_id,
		deposit_amount, amount_due, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+bookingColumns,
		booking.CustomerName, booking.Phone, booking.CountryID, booking.LocationID,
		booking.FlightTypeID, booking.FlightTypeName, booking.SelectedDate, booking.People, booking.ContactMethod, booking.SpecialRequest,
		booking.Currency, booking.BasePrice, booking.TotalPrice, booking.PromoCode, booking.PromoDiscount, booking.Status, booking.CompanyID,
		booking.DepositAmount, booking.AmountDue, booking.PaymentStatus)
	if err := row.Scan(bookingDest(booking)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("create booking: %w: %s", ErrInvalidReference, pgErr.ConstraintName)
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+joinedColumns+` `+joinedFrom+`
		WHERE b.company_id = $1
		ORDER BY b.selected_date ASC, b.created_at ASC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by company: %w", err)
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+joinedColumns+` `+joinedFrom+`
		ORDER BY b.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(joinedDest(&b)...); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+joinedColumns+` `+joinedFrom+` WHERE b.id = $1`, id)
	var b domain.Booking
	if err := row.Scan(joinedDest(&b)...); err != nil {
		return nil, notFound(err, "get booking")
	}
	return &b, nil
}

// UpdateStatus moves the booking from one status to another. It matches no
// row, and returns ErrNotFound, when the stored status is no longer from.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings AS b
		SET status = $1,
			updated_at = now(),
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN now() ELSE b.cancelled_at END
		WHERE b.id = $2 AND b.status = $3
		RETURNING `+bookingColumns, string(to), id, string(from))
	var b domain.Booking
	if err := row.Scan(bookingDest(&b)...); err != nil {
		return nil, notFound(err, "update booking status")
	}
	return &b, nil
}

func (r *PGBookingRepository) AssignPilot(ctx context.Context, id, pilotID, actorID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings AS b
		SET pilot_id = $1, assigned_by = $2, assigned_at = now(), updated_at = now()
		WHERE b.id = $3 AND b.status IN ('pending', 'confirmed')
		RETURNING `+bookingColumns, pilotID, actorID, id)
	var b domain.Booking
	if err := row.Scan(bookingDest(&b)...); err != nil {
		return nil, notFound(err, "assign pilot")
	}
	return &b, nil
}

func (r *PGBookingRepository) MarkSeen(ctx context.Context, id string, role domain.Role) (*domain.Booking, error) {
	var column string
	switch role {
	case domain.RolePilot:
		column = "seen_by_pilot"
	case domain.RoleCompany:
		column = "seen_by_company"
	case domain.RoleAdmin:
		column = "seen_by_admin"
	default:
		return nil, fmt.Errorf("mark seen: unknown role %q", role)
	}

	row := r.db.QueryRow(ctx, `UPDATE bookings AS b
		SET `+column+` = true, seen_at = now(), updated_at = now()
		WHERE b.id = $1
		RETURNING `+bookingColumns, id)
	var b domain.Booking
	if err := row.Scan(bookingDest(&b)...); err != nil {
		return nil, notFound(err, "mark booking seen")
	}
	return &b, nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `DELETE FROM bookings AS b WHERE b.id = $1 RETURNING `+bookingColumns, id)
	var b domain.Booking
	if err := row.Scan(bookingDest(&b)...); err != nil {
		return nil, notFound(err, "delete booking")
	}
	return &b, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
