package repository

import (
	"context"
	"errors"
	"maps"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	apperrors "github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

const licensesCollection = "licenses"

type mongoProvenance struct {
	Source    string `bson:"source"`
	Reference string `bson:"reference"`
}

// mongoLicense is the stored form of a License. The identity digest is the document id.
type mongoLicense struct {
	IdentityDigest     string          `bson:"_id"`
	Active             bool            `bson:"active"`
	Name               string          `bson:"name"`
	Plan               string          `bson:"plan"`
	Permissions        map[string]bool `bson:"permissions"`
	LoginCount         int64           `bson:"login_count"`
	LastLoginAt        *time.Time      `bson:"last_login_at,omitempty"`
	LastLoginIP        string          `bson:"last_login_ip,omitempty"`
	Provenance         mongoProvenance `bson:"provenance"`
	Note               string          `bson:"note"`
	ExpiresAt          *time.Time      `bson:"expires_at,omitempty"`
	DeactivatedAt      *time.Time      `bson:"deactivated_at,omitempty"`
	DeactivationReason string          `bson:"deactivation_reason,omitempty"`
	CreatedAt          time.Time       `bson:"created_at"`
	UpdatedAt          time.Time       `bson:"updated_at"`
}

func toMongoLicense(l *licenseDomain.License) mongoLicense {
	utc := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		v := t.UTC()
		return &v
	}
	permissions := maps.Clone(l.Permissions)
	if permissions == nil {
		permissions = map[string]bool{}
	}
	return mongoLicense{
		IdentityDigest:     l.IdentityDigest,
		Active:             l.Active,
		Name:               l.Name,
		Plan:               l.Plan,
		Permissions:        permissions,
		LoginCount:         l.LoginCount,
		LastLoginAt:        utc(l.LastLoginAt),
		LastLoginIP:        l.LastLoginIP,
		Provenance:         mongoProvenance{Source: l.Provenance.Source, Reference: l.Provenance.Reference},
		Note:               l.Note,
		ExpiresAt:          utc(l.ExpiresAt),
		DeactivatedAt:      utc(l.DeactivatedAt),
		DeactivationReason: l.DeactivationReason,
		CreatedAt:          l.CreatedAt.UTC(),
		UpdatedAt:          l.UpdatedAt.UTC(),
	}
}

func (d mongoLicense) toDomain() (*licenseDomain.License, error) {
	license := &licenseDomain.License{
		IdentityDigest:     d.IdentityDigest,
		Active:             d.Active,
		Name:               d.Name,
		Plan:               d.Plan,
		Permissions:        d.Permissions,
		LoginCount:         d.LoginCount,
		LastLoginAt:        d.LastLoginAt,
		LastLoginIP:        d.LastLoginIP,
		Provenance:         licenseDomain.Provenance{Source: d.Provenance.Source, Reference: d.Provenance.Reference},
		Note:               d.Note,
		ExpiresAt:          d.ExpiresAt,
		DeactivatedAt:      d.DeactivatedAt,
		DeactivationReason: d.DeactivationReason,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if license.Permissions == nil {
		license.Permissions = map[string]bool{}
	}
	if err := license.Validate(); err != nil {
		return nil, err
	}
	return license, nil
}

// MongoDBLicenseRepository implements License persistence for MongoDB.
//
// Single-document writes are atomic, so GetForUpdate takes no lock; the
// authenticator's per-identity lock serializes the writes that matter.
type MongoDBLicenseRepository struct {
	coll *mongo.Collection
}

// EnsureIndexes creates the listing index.
func (r *MongoDBLicenseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to create license indexes")
	}
	return nil
}

// Create inserts a new License. Returns ErrConflict if the digest already exists.
func (r *MongoDBLicenseRepository) Create(ctx context.Context, license *licenseDomain.License) error {
	if _, err := r.coll.InsertOne(ctx, toMongoLicense(license)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrConflict
		}
		return apperrors.Wrap(err, "failed to create license")
	}
	return nil
}

// Update replaces an existing License document.
func (r *MongoDBLicenseRepository) Update(ctx context.Context, license *licenseDomain.License) error {
	result, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: license.IdentityDigest}}, toMongoLicense(license))
	if err != nil {
		return apperrors.Wrap(err, "failed to update license")
	}
	if result.MatchedCount == 0 {
		return licenseDomain.ErrLicenseNotFound
	}
	return nil
}

// Get retrieves a License by identity digest.
func (r *MongoDBLicenseRepository) Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	var doc mongoLicense
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: identityDigest}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, licenseDomain.ErrLicenseNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get license")
	}
	return doc.toDomain()
}

// GetForUpdate is Get; see the type documentation.
func (r *MongoDBLicenseRepository) GetForUpdate(
	ctx context.Context,
	identityDigest string,
) (*licenseDomain.License, error) {
	return r.Get(ctx, identityDigest)
}

// List returns licenses ordered by creation time descending.
func (r *MongoDBLicenseRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*licenseDomain.License, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list licenses")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	licenses := make([]*licenseDomain.License, 0)
	for cursor.Next(ctx) {
		var doc mongoLicense
		if err := cursor.Decode(&doc); err != nil {
			return nil, apperrors.Wrap(licenseDomain.ErrCorruptRecord, err.Error())
		}
		license, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		licenses = append(licenses, license)
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate licenses")
	}
	return licenses, nil
}

// RecordLogin increments the login counter and stores the last login time and IP.
func (r *MongoDBLicenseRepository) RecordLogin(
	ctx context.Context,
	identityDigest, clientIP string,
	at time.Time,
) error {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "login_count", Value: int64(1)}}},
		{Key: "$set", Value: bson.D{
			{Key: "last_login_at", Value: at.UTC()},
			{Key: "last_login_ip", Value: clientIP},
		}},
	}
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: identityDigest}}, update)
	if err != nil {
		return apperrors.Wrap(err, "failed to record login")
	}
	if result.MatchedCount == 0 {
		return licenseDomain.ErrLicenseNotFound
	}
	return nil
}

// NewMongoDBLicenseRepository creates a new MongoDB License repository.
func NewMongoDBLicenseRepository(db *mongo.Database) *MongoDBLicenseRepository {
	return &MongoDBLicenseRepository{coll: db.Collection(licensesCollection)}
}
