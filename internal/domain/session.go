package domain

import "fmt"

type Role string

const (
	RolePilot   Role = "pilot"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePilot, RoleCompany, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Session is who is acting and in which language. It is built once per
// request or websocket connection and passed to every operation.
type Session struct {
	ActorID   string
	Role      Role
	CompanyID string
	Locale    Locale
}

func (s Session) Authenticated() bool {
	return s.ActorID != ""
}

// CanManage reports whether the session may act on bookings of companyID.
func (s Session) CanManage(companyID *string) bool {
	if s.Role == RoleAdmin {
		return true
	}
	return s.Role == RoleCompany && companyID != nil && s.CompanyID != "" && *companyID == s.CompanyID
}
