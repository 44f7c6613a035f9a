package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/scorecast/scorecast/internal/domain/prediction"
)

type PredictionRepository struct {
	mu    sync.RWMutex
	items map[string]prediction.Prediction
}

func NewPredictionRepository() *PredictionRepository {
	return &PredictionRepository{items: make(map[string]prediction.Prediction)}
}

func predictionKey(userID string, fixtureID int64) string {
	return fmt.Sprintf("%s:%d", userID, fixtureID)
}

func (r *PredictionRepository) ListAll(_ context.Context) ([]prediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sortPredictions(out)
	return out, nil
}

func (r *PredictionRepository) ListByUser(_ context.Context, userID string) ([]prediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0, 8)
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sortPredictions(out)
	return out, nil
}

func (r *PredictionRepository) Get(_ context.Context, userID string, fixtureID int64) (prediction.Prediction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[predictionKey(userID, fixtureID)]
	return item, ok, nil
}

func (r *PredictionRepository) Upsert(_ context.Context, pred prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[predictionKey(pred.UserID, pred.FixtureID)] = pred
	return nil
}

func sortPredictions(items []prediction.Prediction) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].UserID != items[j].UserID {
			return items[i].UserID < items[j].UserID
		}
		if !items[i].Kickoff.Equal(items[j].Kickoff) {
			return items[i].Kickoff.Before(items[j].Kickoff)
		}
		return items[i].FixtureID < items[j].FixtureID
	})
}
