package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scorecast/scorecast/internal/domain/prediction"
)

const predictionCollection = "predictions"

type predictionDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	FixtureID int64     `bson:"fixture_id"`
	Home      *int      `bson:"home"`
	Away      *int      `bson:"away"`
	Locked    bool      `bson:"locked"`
	Round     string    `bson:"round"`
	Kickoff   time.Time `bson:"kickoff"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func predictionDocID(userID string, fixtureID int64) string {
	return fmt.Sprintf("%s:%d", userID, fixtureID)
}

func (d predictionDocument) toDomain() prediction.Prediction {
	return prediction.Prediction{
		UserID:    d.UserID,
		FixtureID: d.FixtureID,
		Home:      d.Home,
		Away:      d.Away,
		Locked:    d.Locked,
		Round:     d.Round,
		Kickoff:   d.Kickoff,
	}
}

// PredictionRepository stores predictions in a single collection keyed
// by user and fixture.
type PredictionRepository struct {
	coll *mongo.Collection
}

func NewPredictionRepository(db *mongo.Database) *PredictionRepository {
	return &PredictionRepository{coll: db.Collection(predictionCollection)}
}

// EnsureIndexes creates the user listing index. Safe to call on every
// startup.
func (r *PredictionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "kickoff", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create prediction indexes: %w", err)
	}
	return nil
}

func (r *PredictionRepository) ListAll(ctx context.Context) ([]prediction.Prediction, error) {
	return r.list(ctx, bson.M{})
}

func (r *PredictionRepository) ListByUser(ctx context.Context, userID string) ([]prediction.Prediction, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *PredictionRepository) list(ctx context.Context, filter bson.M) ([]prediction.Prediction, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "kickoff", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find predictions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []predictionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}

	items := make([]prediction.Prediction, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return items, nil
}

func (r *PredictionRepository) Get(ctx context.Context, userID string, fixtureID int64) (prediction.Prediction, bool, error) {
	var doc predictionDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": predictionDocID(userID, fixtureID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return prediction.Prediction{}, false, nil
	}
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("get prediction user=%s fixture=%d: %w", userID, fixtureID, err)
	}
	return doc.toDomain(), true, nil
}

func (r *PredictionRepository) Upsert(ctx context.Context, item prediction.Prediction) error {
	doc := predictionDocument{
		ID:        predictionDocID(item.UserID, item.FixtureID),
		UserID:    item.UserID,
		FixtureID: item.FixtureID,
		Home:      item.Home,
		Away:      item.Away,
		Locked:    item.Locked,
		Round:     item.Round,
		Kickoff:   item.Kickoff,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert prediction user=%s fixture=%d: %w", item.UserID, item.FixtureID, err)
	}
	return nil
}
