// Package usecase implements license administration: payment upserts,
// refund deactivation and reactivation.
package usecase

import (
	"context"
	"time"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// LicenseRepository defines persistence operations for licenses.
// Implementations must support transaction-aware operations via context propagation.
type LicenseRepository interface {
	// Create stores a new license. Returns ErrConflict if the digest exists.
	Create(ctx context.Context, license *licenseDomain.License) error

	// Update replaces an existing license. Returns ErrLicenseNotFound if absent.
	Update(ctx context.Context, license *licenseDomain.License) error

	// Get retrieves a license by identity digest. Returns ErrLicenseNotFound if absent.
	Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error)

	// GetForUpdate is Get with a row lock held until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, identityDigest string) (*licenseDomain.License, error)

	// List returns licenses ordered by creation time descending.
	List(ctx context.Context, offset, limit int) ([]*licenseDomain.License, error)

	// RecordLogin increments the login counter and stores the last login time and IP.
	RecordLogin(ctx context.Context, identityDigest, clientIP string, at time.Time) error
}

// SessionRevoker ends every session of an identity. The authenticator satisfies it.
type SessionRevoker interface {
	RevokeAllFor(ctx context.Context, identityDigest string) (int64, error)
}

// CacheInvalidator drops a cached login outcome. *authcache.Cache satisfies it.
type CacheInvalidator interface {
	Invalidate(identityDigest string)
}

// LicenseUseCase defines license administration.
type LicenseUseCase interface {
	// Upsert creates the license for a confirmed payment, or renews an existing one.
	// A renewed license is active again; its counters and creation time are kept.
	Upsert(ctx context.Context, input licenseDomain.UpsertInput) (*licenseDomain.UpsertOutput, error)

	// Deactivate marks the license inactive and revokes every session of the identity
	// before returning. Deactivating an inactive license still revokes its sessions.
	Deactivate(ctx context.Context, input licenseDomain.DeactivateInput) (*licenseDomain.DeactivateOutput, error)

	// Reactivate marks the license active again.
	Reactivate(ctx context.Context, identityDigest string) (*licenseDomain.License, error)

	// Get retrieves a license by identity digest.
	Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error)

	// List pages through licenses, newest first.
	List(ctx context.Context, filter licenseDomain.ListFilter) ([]*licenseDomain.License, error)
}
