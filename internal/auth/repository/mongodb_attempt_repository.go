package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

const attemptsCollection = "auth_attempts"

type mongoAttempt struct {
	ID             string    `bson:"_id"`
	IdentityDigest string    `bson:"identity_digest"`
	ClientIP       string    `bson:"client_ip"`
	Reason         string    `bson:"reason"`
	CreatedAt      time.Time `bson:"created_at"`
}

// MongoDBAttemptRepository stores rejected login attempts in MongoDB.
type MongoDBAttemptRepository struct {
	coll *mongo.Collection
}

// EnsureIndexes creates the lookup indexes.
func (r *MongoDBAttemptRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "identity_digest", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to create auth attempt indexes")
	}
	return nil
}

// Create inserts a new AuthAttempt.
func (r *MongoDBAttemptRepository) Create(ctx context.Context, attempt *authDomain.AuthAttempt) error {
	_, err := r.coll.InsertOne(ctx, mongoAttempt{
		ID:             attempt.ID.String(),
		IdentityDigest: attempt.IdentityDigest,
		ClientIP:       attempt.ClientIP,
		Reason:         attempt.Reason,
		CreatedAt:      attempt.CreatedAt.UTC(),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to create auth attempt")
	}
	return nil
}

// NewMongoDBAttemptRepository creates a new MongoDB AuthAttempt repository.
func NewMongoDBAttemptRepository(db *mongo.Database) *MongoDBAttemptRepository {
	return &MongoDBAttemptRepository{coll: db.Collection(attemptsCollection)}
}
