package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/scorecast/scorecast/internal/domain/user"
)

type UserRepository struct {
	mu    sync.RWMutex
	items map[string]user.Profile
}

func NewUserRepository(seed ...user.Profile) *UserRepository {
	repo := &UserRepository{items: make(map[string]user.Profile, len(seed))}
	for _, profile := range seed {
		repo.items[profile.ID] = profile
	}
	return repo
}

func (r *UserRepository) List(_ context.Context) ([]user.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.Profile, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		left := strings.ToLower(out[i].DisplayName)
		right := strings.ToLower(out[j].DisplayName)
		if left != right {
			return left < right
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *UserRepository) Get(_ context.Context, id string) (user.Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	return item, ok, nil
}

func (r *UserRepository) Upsert(_ context.Context, profile user.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[profile.ID] = profile
	return nil
}
