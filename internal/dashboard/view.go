package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/paraglide/internal/domain"
)

type Tab string

const (
	TabAll        Tab = "all"
	TabUnassigned Tab = "unassigned"
	TabAssigned   Tab = "assigned"
	TabPending    Tab = Tab(domain.BookingStatusPending)
	TabConfirmed  Tab = Tab(domain.BookingStatusConfirmed)
	TabCompleted  Tab = Tab(domain.BookingStatusCompleted)
	TabCancelled  Tab = Tab(domain.BookingStatusCancelled)
)

// ParseTab accepts an empty string as TabAll.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TabAll, nil
	case TabAll, TabUnassigned, TabAssigned, TabPending, TabConfirmed, TabCompleted, TabCancelled:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab: %q", s)
}

func (t Tab) match(b *domain.Booking) bool {
	switch t {
	case TabAll, "":
		return true
	case TabUnassigned:
		return !b.Assigned()
	case TabAssigned:
		return b.Assigned()
	}
	return b.Status == domain.BookingStatus(t)
}

// Filter returns the bookings on tab whose customer name, phone or localized
// location name contains search, ignoring case.
func Filter(bookings []domain.Booking, tab Tab, search string, locale domain.Locale) []domain.Booking {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Booking, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if !tab.match(b) {
			continue
		}
		if needle != "" && !matchSearch(b, needle, locale) {
			continue
		}
		out = append(out, *b)
	}
	return out
}

func matchSearch(b *domain.Booking, needle string, locale domain.Locale) bool {
	return strings.Contains(strings.ToLower(b.CustomerName), needle) ||
		strings.Contains(strings.ToLower(b.Phone), needle) ||
		strings.Contains(strings.ToLower(b.LocationName.Resolve(locale)), needle)
}

// Stats are always computed over the whole projection, never the filtered set.
type Stats struct {
	Total      int     `json:"total"`
	Unassigned int     `json:"unassigned"`
	Assigned   int     `json:"assigned"`
	Pending    int     `json:"pending"`
	Confirmed  int     `json:"confirmed"`
	Completed  int     `json:"completed"`
	Cancelled  int     `json:"cancelled"`
	Today      int     `json:"today"`
	Revenue    float64 `json:"revenue"`
}

// Aggregate counts bookings per status and assignment. Today counts bookings
// whose selected date equals today's ISO date; Revenue sums the amount due of
// completed bookings.
func Aggregate(bookings []domain.Booking, today time.Time) Stats {
	day := today.Format(domain.DateLayout)
	var st Stats
	for i := range bookings {
		b := &bookings[i]
		st.Total++
		if b.Assigned() {
			st.Assigned++
		} else {
			st.Unassigned++
		}
		switch b.Status {
		case domain.BookingStatusPending:
			st.Pending++
		case domain.BookingStatusConfirmed:
			st.Confirmed++
		case domain.BookingStatusCompleted:
			st.Completed++
			st.Revenue += b.AmountDue
		case domain.BookingStatusCancelled:
			st.Cancelled++
		}
		if isoDay(b.SelectedDate) == day {
			st.Today++
		}
	}
	return st
}

func isoDay(s string) string {
	if len(s) < len(domain.DateLayout) {
		return s
	}
	return s[:len(domain.DateLayout)]
}

type State string

const (
	StateReady           State = "ready"
	StateNoCompany       State = "no_company"
	StateUnauthenticated State = "unauthenticated"
)

// Row is a booking with its joined names resolved for one locale.
type Row struct {
	domain.Booking
	Country  string `json:"country"`
	Location string `json:"location"`
	Pilot    string `json:"pilot"`
	New      bool   `json:"new"`
}

type PilotOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// View is everything a dashboard screen renders.
type View struct {
	State    State         `json:"state"`
	Tab      Tab           `json:"tab"`
	Search   string        `json:"search"`
	Bookings []Row         `json:"bookings"`
	Stats    Stats         `json:"stats"`
	Pilots   []PilotOption `json:"pilots"`
}

// BuildView derives the screen for one session from a projection snapshot.
func BuildView(sess domain.Session, all []domain.Booking, pilots []domain.Pilot, tab Tab, search string, today time.Time) View {
	filtered := Filter(all, tab, search, sess.Locale)
	rows := make([]Row, 0, len(filtered))
	for _, b := range filtered {
		rows = append(rows, Row{
			Booking:  b,
			Country:  b.CountryName.Resolve(sess.Locale),
			Location: b.LocationName.Resolve(sess.Locale),
			Pilot:    b.PilotName.Resolve(sess.Locale),
			New:      !b.SeenBy(sess.Role),
		})
	}

	options := make([]PilotOption, 0, len(pilots))
	for _, p := range pilots {
		options = append(options, PilotOption{ID: p.ID, Name: p.Name.Resolve(sess.Locale)})
	}

	return View{
		State:    StateReady,
		Tab:      tab,
		Search:   search,
		Bookings: rows,
		Stats:    Aggregate(all, today),
		Pilots:   options,
	}
}
