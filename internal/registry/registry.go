// internal/registry/registry.go
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/coinbot/internal/domain"
)

// Registry is the shared, concurrency-safe set of open positions keyed by mint.
// Each position is written only by its owning monitor; readers get copies.
type Registry struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position
	now       func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		positions: make(map[string]*domain.Position),
		now:       time.Now,
	}
}

// Upsert stores a copy of the position, replacing any previous entry.
func (r *Registry) Upsert(pos domain.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := pos
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = r.now()
	}
	r.positions[pos.Mint] = &p
}

// Update applies fn to the stored position under the write lock.
// fn must not block or perform I/O. SoldPercent and PeakPrice never move
// backwards regardless of what fn does. Returns false if mint is unknown.
func (r *Registry) Update(mint string, fn func(*domain.Position)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.positions[mint]
	if !ok {
		return false
	}

	prevSold, prevPeak := p.SoldPercent, p.PeakPrice
	fn(p)

	if p.SoldPercent < prevSold {
		p.SoldPercent = prevSold
	}
	if p.SoldPercent > 100 {
		p.SoldPercent = 100
	}
	if p.PeakPrice < prevPeak {
		p.PeakPrice = prevPeak
	}
	p.Mint = mint
	p.UpdatedAt = r.now()
	return true
}

// Remove deletes the position. Returns true if it was present.
func (r *Registry) Remove(mint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.positions[mint]; !ok {
		return false
	}
	delete(r.positions, mint)
	return true
}

// Get returns a copy of the position for mint.
func (r *Registry) Get(mint string) (domain.Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.positions[mint]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Has reports whether a position for mint is open.
func (r *Registry) Has(mint string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.positions[mint]
	return ok
}

// Len returns the number of open positions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}

// SnapshotAll returns copies of all open positions ordered by open time.
func (r *Registry) SnapshotAll() []domain.Position {
	r.mu.RLock()
	out := make([]domain.Position, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, *p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].Mint < out[j].Mint
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}
