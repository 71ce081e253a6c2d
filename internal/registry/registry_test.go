package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/coinbot/internal/domain"
)

func TestRegistry_UpsertGetRemove(t *testing.T) {
	r := New()
	pos := domain.NewPosition("mintA", 1000, 100, time.Now())

	r.Upsert(pos)
	got, ok := r.Get("mintA")
	require.True(t, ok)
	assert.Equal(t, 10.0, got.EntryPrice)
	assert.True(t, r.Has("mintA"))
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Remove("mintA"))
	assert.False(t, r.Remove("mintA"))
	_, ok = r.Get("mintA")
	assert.False(t, ok)
	assert.Empty(t, r.SnapshotAll())
}

func TestRegistry_UpdateUnknownMint(t *testing.T) {
	r := New()
	called := false
	ok := r.Update("missing", func(p *domain.Position) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

func TestRegistry_UpdateKeepsMonotonicFields(t *testing.T) {
	r := New()
	r.Upsert(domain.NewPosition("mintA", 100, 100, time.Now()))

	require.True(t, r.Update("mintA", func(p *domain.Position) {
		p.SoldPercent = 40
		p.PeakPrice = 5
	}))
	require.True(t, r.Update("mintA", func(p *domain.Position) {
		p.SoldPercent = 10
		p.PeakPrice = 2
	}))

	got, _ := r.Get("mintA")
	assert.Equal(t, 40.0, got.SoldPercent)
	assert.Equal(t, 5.0, got.PeakPrice)

	r.Update("mintA", func(p *domain.Position) { p.SoldPercent = 250 })
	got, _ = r.Get("mintA")
	assert.Equal(t, 100.0, got.SoldPercent)
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := New()
	r.Upsert(domain.NewPosition("mintA", 100, 100, time.Now()))

	snap := r.SnapshotAll()
	require.Len(t, snap, 1)
	snap[0].SoldPercent = 99

	got, _ := r.Get("mintA")
	assert.Zero(t, got.SoldPercent)
}

func TestRegistry_SnapshotOrdering(t *testing.T) {
	r := New()
	base := time.Now()
	r.Upsert(domain.NewPosition("c", 1, 1, base.Add(2*time.Second)))
	r.Upsert(domain.NewPosition("b", 1, 1, base))
	r.Upsert(domain.NewPosition("a", 1, 1, base))

	snap := r.SnapshotAll()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap[0].Mint, snap[1].Mint, snap[2].Mint})
}

func TestRegistry_ConcurrentWritersAndReaders(t *testing.T) {
	r := New()
	const writers = 20
	const updates = 200

	for i := 0; i < writers; i++ {
		r.Upsert(domain.NewPosition(fmt.Sprintf("mint%d", i), 0, 100, time.Now()))
	}

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(id int) {
			defer wg.Done()
			mint := fmt.Sprintf("mint%d", id)
			for j := 1; j <= updates; j++ {
				r.Update(mint, func(p *domain.Position) {
					p.PeakPrice = float64(j)
					p.SoldPercent = float64(j) / 2
				})
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for k := 0; k < 100; k++ {
			for _, p := range r.SnapshotAll() {
				// a copy is either fully before or fully after an update
				assert.Equal(t, p.PeakPrice/2, p.SoldPercent)
			}
		}
	}()

	wg.Wait()
	<-done

	for _, p := range r.SnapshotAll() {
		assert.Equal(t, float64(updates), p.PeakPrice)
		assert.Equal(t, 100.0, p.SoldPercent)
	}
}
