package prediction

import "context"

type Repository interface {
	ListAll(ctx context.Context) ([]Prediction, error)
	ListByUser(ctx context.Context, userID string) ([]Prediction, error)
	Get(ctx context.Context, userID string, fixtureID int64) (Prediction, bool, error)
	Upsert(ctx context.Context, item Prediction) error
}
