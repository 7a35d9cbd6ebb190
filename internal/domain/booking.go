package domain

import "time"

type ContactChannel string

const (
	ContactWhatsApp ContactChannel = "whatsapp"
	ContactTelegram ContactChannel = "telegram"
	ContactViber    ContactChannel = "viber"
	ContactNone     ContactChannel = "none"
)

func (c ContactChannel) Valid() bool {
	switch c {
	case ContactWhatsApp, ContactTelegram, ContactViber, ContactNone:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid      PaymentStatus = "unpaid"
	PaymentDepositPaid PaymentStatus = "deposit_paid"
	PaymentPaid        PaymentStatus = "paid"
	PaymentRefunded    PaymentStatus = "refunded"
)

// DateLayout is the ISO date format used for SelectedDate.
const DateLayout = "2006-01-02"

type Booking struct {
	ID             string         `json:"id"`
	CustomerName   string         `json:"customer_name"`
	Phone          string         `json:"phone"`
	CountryID      *string        `json:"country_id"`
	LocationID     *string        `json:"location_id"`
	FlightTypeID   string         `json:"flight_type_id"`
	FlightTypeName string         `json:"flight_type_name"`
	SelectedDate   string         `json:"selected_date"`
	People         int            `json:"number_of_people"`
	ContactMethod  ContactChannel `json:"contact_method"`
	SpecialRequest string         `json:"special_requests"`
	Currency       string         `json:"currency"`
	BasePrice      float64        `json:"base_price"`
	TotalPrice     float64        `json:"total_price"`
	PromoCode      string         `json:"promo_code"`
	PromoDiscount  float64        `json:"promo_discount"`

	Status BookingStatus `json:"status"`

	PilotID    *string    `json:"pilot_id"`
	CompanyID  *string    `json:"company_id"`
	AssignedBy *string    `json:"assigned_by"`
	AssignedAt *time.Time `json:"assigned_at"`

	DepositAmount float64       `json:"deposit_amount"`
	AmountDue     float64       `json:"amount_due"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	SeenByPilot   bool       `json:"seen_by_pilot"`
	SeenByCompany bool       `json:"seen_by_company"`
	SeenByAdmin   bool       `json:"seen_by_admin"`
	SeenAt        *time.Time `json:"seen_at"`

	RescheduleCount  int     `json:"reschedule_count"`
	OriginalDate     *string `json:"original_date"`
	RescheduleReason *string `json:"reschedule_reason"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	// Resolved by join at read time; never written back.
	CountryName  LocalizedText `json:"country_name,omitempty"`
	LocationName LocalizedText `json:"location_name,omitempty"`
	PilotName    LocalizedText `json:"pilot_name,omitempty"`
}

func (b *Booking) Assigned() bool {
	return b.PilotID != nil
}

// SeenBy reports the seen flag that belongs to role.
func (b *Booking) SeenBy(role Role) bool {
	switch role {
	case RolePilot:
		return b.SeenByPilot
	case RoleCompany:
		return b.SeenByCompany
	case RoleAdmin:
		return b.SeenByAdmin
	}
	return false
}

// CopyState takes the stored columns from src and keeps the joined display
// names of b. Used when a write returns the bare row.
func (b *Booking) CopyState(src Booking) {
	country, location, pilot := b.CountryName, b.LocationName, b.PilotName
	*b = src
	b.CountryName, b.LocationName, b.PilotName = country, location, pilot
}
