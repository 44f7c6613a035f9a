package memory

import (
	"context"
	"sync"
	"time"

	"github.com/scorecast/scorecast/internal/domain/fixture"
)

// FixtureRepository is the in-process fixture snapshot the refresh
// poller maintains.
type FixtureRepository struct {
	mu    sync.RWMutex
	items map[int64]fixture.Fixture
}

func NewFixtureRepository() *FixtureRepository {
	return &FixtureRepository{items: make(map[int64]fixture.Fixture)}
}

func (r *FixtureRepository) ReplaceAll(_ context.Context, fixtures []fixture.Fixture) error {
	next := make(map[int64]fixture.Fixture, len(fixtures))
	for _, fx := range fixtures {
		next[fx.ID] = fx
	}

	r.mu.Lock()
	r.items = next
	r.mu.Unlock()
	return nil
}

func (r *FixtureRepository) UpsertMany(_ context.Context, fixtures []fixture.Fixture) error {
	r.mu.Lock()
	for _, fx := range fixtures {
		r.items[fx.ID] = fx
	}
	r.mu.Unlock()
	return nil
}

func (r *FixtureRepository) Get(_ context.Context, id int64) (fixture.Fixture, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fx, ok := r.items[id]
	return fx, ok, nil
}

func (r *FixtureRepository) ListRange(_ context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(r.items))
	for _, fx := range r.items {
		if fx.Kickoff.Before(from) || fx.Kickoff.After(to) {
			continue
		}
		out = append(out, fx)
	}
	fixture.SortByKickoff(out)
	return out, nil
}
