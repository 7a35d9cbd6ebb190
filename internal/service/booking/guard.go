package booking

import "sync"

// processingGuard tracks bookings with a write in flight in this process.
type processingGuard struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newProcessingGuard() *processingGuard {
	return &processingGuard{ids: make(map[string]struct{})}
}

func (g *processingGuard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.ids[id]; busy {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

func (g *processingGuard) release(id string) {
	g.mu.Lock()
	delete(g.ids, id)
	g.mu.Unlock()
}
