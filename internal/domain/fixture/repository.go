package fixture

import (
	"context"
	"time"
)

// Repository holds the most recent fixture snapshot taken from the
// upstream provider. It is a read-through convenience, not the source
// of truth; the provider is.
type Repository interface {
	ReplaceAll(ctx context.Context, fixtures []Fixture) error
	UpsertMany(ctx context.Context, fixtures []Fixture) error
	Get(ctx context.Context, id int64) (Fixture, bool, error)
	ListRange(ctx context.Context, from, to time.Time) ([]Fixture, error)
}
