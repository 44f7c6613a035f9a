package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scorecast/scorecast/internal/domain/user"
)

const userCollection = "users"

// UserRepository stores player profiles. Profiles carry bson tags so
// the domain type maps straight onto the collection.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(userCollection)}
}

func (r *UserRepository) List(ctx context.Context) ([]user.Profile, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "display_name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []user.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return profiles, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (user.Profile, bool, error) {
	var profile user.Profile
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.Profile{}, false, nil
	}
	if err != nil {
		return user.Profile{}, false, fmt.Errorf("get user %s: %w", id, err)
	}
	return profile, true, nil
}

func (r *UserRepository) Upsert(ctx context.Context, p user.Profile) error {
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"_id": p.ID},
		p,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", p.ID, err)
	}
	return nil
}
