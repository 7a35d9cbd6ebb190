package domain

import "fmt"

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

func ParseChangeKind(s string) (ChangeKind, error) {
	switch ChangeKind(s) {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return ChangeKind(s), nil
	}
	return "", fmt.Errorf("unknown change kind: %q", s)
}

const TableBookings = "bookings"

// ChangeEvent is one row change on a table. Row is the full row for
// insert/update; for delete only Row.ID and Row.CompanyID are guaranteed.
type ChangeEvent struct {
	Kind  ChangeKind `json:"kind"`
	Table string     `json:"table"`
	Row   Booking    `json:"row"`
}

// CompanyID of the changed row, or "" when it has none.
func (e ChangeEvent) CompanyID() string {
	if e.Row.CompanyID == nil {
		return ""
	}
	return *e.Row.CompanyID
}
