package domain

import "time"

type PilotStatus string

const (
	PilotStatusPending  PilotStatus = "pending"
	PilotStatusVerified PilotStatus = "verified"
	PilotStatusBlocked  PilotStatus = "blocked"
)

type Pilot struct {
	ID        string        `json:"id"`
	CompanyID *string       `json:"company_id"`
	Name      LocalizedText `json:"name"`
	Phone     string        `json:"phone"`
	Status    PilotStatus   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

type Company struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	Name      LocalizedText `json:"name"`
	Email     string        `json:"email"`
	CreatedAt time.Time     `json:"created_at"`
}
