package dashboard

import (
	"sync"

	"github.com/Domenick1991/paraglide/internal/domain"
)

// Projection is the in-memory booking list of one dashboard session. It is
// changed only by Replace (refetch), Patch (after a successful write) and
// Remove (delete notification).
//
// Rows carry UpdatedAt, and the newer row always wins: a refetch that
// finished after a local patch but read older data does not undo the patch.
type Projection struct {
	mu     sync.RWMutex
	rows   []domain.Booking
	loaded bool
}

func NewProjection() *Projection {
	return &Projection{rows: make([]domain.Booking, 0)}
}

// Replace swaps in a fresh fetch, keeping the fetched order.
func (p *Projection) Replace(fetched []domain.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()

	local := make(map[string]domain.Booking, len(p.rows))
	for _, b := range p.rows {
		local[b.ID] = b
	}

	rows := make([]domain.Booking, 0, len(fetched))
	for _, b := range fetched {
		if prev, ok := local[b.ID]; ok && prev.UpdatedAt.After(b.UpdatedAt) {
			b.CopyState(prev)
		}
		rows = append(rows, b)
	}
	p.rows = rows
	p.loaded = true
}

// Patch applies a row returned by a write. It reports false when the row is
// not in the projection or is older than what is already there.
func (p *Projection) Patch(row domain.Booking) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.rows {
		if p.rows[i].ID != row.ID {
			continue
		}
		if p.rows[i].UpdatedAt.After(row.UpdatedAt) {
			return false
		}
		p.rows[i].CopyState(row)
		return true
	}
	return false
}

func (p *Projection) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.rows {
		if p.rows[i].ID == id {
			p.rows = append(p.rows[:i], p.rows[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy safe to read without holding the lock.
func (p *Projection) Snapshot() []domain.Booking {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.Booking, len(p.rows))
	copy(out, p.rows)
	return out
}

func (p *Projection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rows)
}

// Loaded reports whether at least one fetch has succeeded.
func (p *Projection) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}
