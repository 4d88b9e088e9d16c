package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

const sessionsCollection = "sessions"

// mongoSession is the stored form of a Session. The token hash is the document id.
type mongoSession struct {
	TokenHash      string    `bson:"_id"`
	IdentityDigest string    `bson:"identity_digest"`
	OriginIP       string    `bson:"origin_ip"`
	CreatedAt      time.Time `bson:"created_at"`
	ExpiresAt      time.Time `bson:"expires_at"`
}

// MongoDBSessionRepository implements Session persistence for MongoDB.
// A TTL index on expires_at lets the server reap expired sessions on its own.
type MongoDBSessionRepository struct {
	coll *mongo.Collection
}

// EnsureIndexes creates the identity and expiry indexes.
func (r *MongoDBSessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "identity_digest", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to create session indexes")
	}
	return nil
}

// Create inserts a new Session.
func (r *MongoDBSessionRepository) Create(ctx context.Context, session *authDomain.Session) error {
	_, err := r.coll.InsertOne(ctx, mongoSession{
		TokenHash:      session.TokenHash,
		IdentityDigest: session.IdentityDigest,
		OriginIP:       session.OriginIP,
		CreatedAt:      session.CreatedAt.UTC(),
		ExpiresAt:      session.ExpiresAt.UTC(),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByTokenHash retrieves a Session by token hash. Returns ErrSessionNotFound if absent.
func (r *MongoDBSessionRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*authDomain.Session, error) {
	var doc mongoSession
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: tokenHash}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, authDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	session := &authDomain.Session{
		TokenHash:      doc.TokenHash,
		IdentityDigest: doc.IdentityDigest,
		OriginIP:       doc.OriginIP,
		CreatedAt:      doc.CreatedAt,
		ExpiresAt:      doc.ExpiresAt,
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a Session and reports whether it existed.
func (r *MongoDBSessionRepository) Delete(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: tokenHash}})
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete session")
	}
	return res.DeletedCount > 0, nil
}

// DeleteAllFor removes every Session of an identity digest.
func (r *MongoDBSessionRepository) DeleteAllFor(ctx context.Context, identityDigest string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "identity_digest", Value: identityDigest}})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete sessions")
	}
	return res.DeletedCount, nil
}

// HasLiveFor reports whether a Session of the identity digest is live at now.
func (r *MongoDBSessionRepository) HasLiveFor(
	ctx context.Context,
	identityDigest string,
	now time.Time,
) (bool, error) {
	filter := bson.D{
		{Key: "identity_digest", Value: identityDigest},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now.UTC()}}},
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check live session")
	}
	return n > 0, nil
}

// DeleteExpired removes every Session with expires_at <= now that the TTL monitor has not reaped yet.
func (r *MongoDBSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now.UTC()}}}})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}
	return res.DeletedCount, nil
}

// CountActive returns the number of Sessions live at now.
func (r *MongoDBSessionRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now.UTC()}}}})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count sessions")
	}
	return n, nil
}

// NewMongoDBSessionRepository creates a new MongoDB Session repository.
func NewMongoDBSessionRepository(db *mongo.Database) *MongoDBSessionRepository {
	return &MongoDBSessionRepository{coll: db.Collection(sessionsCollection)}
}
