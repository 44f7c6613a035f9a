package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/scorecast/scorecast/internal/domain/rawdata"
)

const upsertRawPayloadQuery = `
INSERT INTO raw_provider_payloads (
    source, entity_type, entity_key, competition, season, matchday,
    payload, payload_hash, source_updated_at, ingested_at
) VALUES (
    :source, :entity_type, :entity_key, :competition, :season, :matchday,
    :payload, :payload_hash, :source_updated_at, NOW()
)
ON CONFLICT (source, entity_type, entity_key)
DO UPDATE SET
    competition = EXCLUDED.competition,
    season = EXCLUDED.season,
    matchday = EXCLUDED.matchday,
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    source_updated_at = EXCLUDED.source_updated_at,
    ingested_at = NOW()`

// RawDataRepository archives raw provider responses so scoring disputes
// can be settled against what the provider actually returned.
type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

func (r *RawDataRepository) UpsertMany(ctx context.Context, items []rawdata.Payload) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		row := rawPayloadInsertModel{
			Source:          item.Source,
			EntityType:      item.EntityType,
			EntityKey:       item.EntityKey,
			Competition:     item.Competition,
			Season:          item.Season,
			Matchday:        item.Matchday,
			Payload:         item.PayloadJSON,
			PayloadHash:     item.PayloadHash,
			SourceUpdatedAt: item.SourceUpdatedAt,
		}
		if _, err := tx.NamedExecContext(ctx, upsertRawPayloadQuery, row); err != nil {
			return fmt.Errorf("upsert raw payload entity=%s key=%s: %w", item.EntityType, item.EntityKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}

	return nil
}

type rawPayloadInsertModel struct {
	Source          string     `db:"source"`
	EntityType      string     `db:"entity_type"`
	EntityKey       string     `db:"entity_key"`
	Competition     string     `db:"competition"`
	Season          string     `db:"season"`
	Matchday        string     `db:"matchday"`
	Payload         string     `db:"payload"`
	PayloadHash     string     `db:"payload_hash"`
	SourceUpdatedAt *time.Time `db:"source_updated_at"`
}
