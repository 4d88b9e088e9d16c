package usecase

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/scrilab/artale-auth/internal/database"
	"github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// List page bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// licenseUseCase implements LicenseUseCase.
type licenseUseCase struct {
	txManager   database.TxManager
	licenseRepo LicenseRepository
	revoker     SessionRevoker
	cache       CacheInvalidator
	logger      *slog.Logger
	nowFn       func() time.Time
}

// NewLicenseUseCase creates a new LicenseUseCase.
func NewLicenseUseCase(
	txManager database.TxManager,
	licenseRepo LicenseRepository,
	revoker SessionRevoker,
	cache CacheInvalidator,
	logger *slog.Logger,
) LicenseUseCase {
	return &licenseUseCase{
		txManager:   txManager,
		licenseRepo: licenseRepo,
		revoker:     revoker,
		cache:       cache,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// Upsert creates or renews the license inside one transaction.
func (l *licenseUseCase) Upsert(
	ctx context.Context,
	input licenseDomain.UpsertInput,
) (*licenseDomain.UpsertOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var output *licenseDomain.UpsertOutput
	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := l.nowFn().UTC()

		existing, err := l.licenseRepo.GetForUpdate(ctx, input.IdentityDigest)
		if err != nil && !errors.Is(err, licenseDomain.ErrLicenseNotFound) {
			return err
		}

		if existing == nil {
			license := &licenseDomain.License{
				IdentityDigest: input.IdentityDigest,
				Active:         true,
				CreatedAt:      now,
			}
			applyUpsert(license, input, now)
			if err := l.licenseRepo.Create(ctx, license); err != nil {
				return err
			}
			output = &licenseDomain.UpsertOutput{License: license, Created: true}
			return nil
		}

		applyUpsert(existing, input, now)
		existing.Active = true
		existing.DeactivatedAt = nil
		existing.DeactivationReason = ""
		if err := l.licenseRepo.Update(ctx, existing); err != nil {
			return err
		}
		output = &licenseDomain.UpsertOutput{License: existing}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.cache.Invalidate(input.IdentityDigest)
	l.logger.Info("license upserted",
		slog.String("identity_digest", input.IdentityDigest),
		slog.String("source", input.Provenance.Source),
		slog.Bool("created", output.Created),
	)
	return output, nil
}

func applyUpsert(license *licenseDomain.License, input licenseDomain.UpsertInput, now time.Time) {
	license.Name = strings.TrimSpace(input.Name)
	license.Plan = input.Plan
	license.Permissions = maps.Clone(input.Permissions)
	if license.Permissions == nil {
		license.Permissions = map[string]bool{}
	}
	license.ExpiresAt = input.ExpiresAt
	license.Provenance = input.Provenance
	license.Note = input.Note
	license.UpdatedAt = now
}

// Deactivate flips the license inactive, then revokes its sessions synchronously.
// Logins read the license under the identity lock that the revoke also takes,
// so a login racing the commit either sees the inactive license or has its
// session removed by the revoke.
func (l *licenseUseCase) Deactivate(
	ctx context.Context,
	input licenseDomain.DeactivateInput,
) (*licenseDomain.DeactivateOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var license *licenseDomain.License
	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		license, err = l.licenseRepo.GetForUpdate(ctx, input.IdentityDigest)
		if err != nil {
			return err
		}
		if !license.Active {
			return nil
		}

		now := l.nowFn().UTC()
		license.Active = false
		license.DeactivatedAt = &now
		license.DeactivationReason = strings.TrimSpace(input.Reason)
		license.UpdatedAt = now
		return l.licenseRepo.Update(ctx, license)
	})
	if err != nil {
		return nil, err
	}

	revoked, err := l.revoker.RevokeAllFor(ctx, input.IdentityDigest)
	if err != nil {
		l.logger.Error("license deactivated but sessions not revoked",
			slog.String("identity_digest", input.IdentityDigest),
			slog.Any("error", err),
		)
		return nil, err
	}
	l.cache.Invalidate(input.IdentityDigest)

	l.logger.Info("license deactivated",
		slog.String("identity_digest", input.IdentityDigest),
		slog.String("reason", license.DeactivationReason),
		slog.Int64("revoked_sessions", revoked),
	)
	return &licenseDomain.DeactivateOutput{License: license, RevokedSessions: revoked}, nil
}

// Reactivate clears the deactivation of a license.
func (l *licenseUseCase) Reactivate(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	var license *licenseDomain.License
	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		license, err = l.licenseRepo.GetForUpdate(ctx, identityDigest)
		if err != nil {
			return err
		}
		if license.Active {
			return nil
		}

		license.Active = true
		license.DeactivatedAt = nil
		license.DeactivationReason = ""
		license.UpdatedAt = l.nowFn().UTC()
		return l.licenseRepo.Update(ctx, license)
	})
	if err != nil {
		return nil, err
	}

	l.cache.Invalidate(identityDigest)
	l.logger.Info("license reactivated", slog.String("identity_digest", identityDigest))
	return license, nil
}

// Get retrieves a license by identity digest.
func (l *licenseUseCase) Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	return l.licenseRepo.Get(ctx, identityDigest)
}

// List pages through licenses, newest first.
func (l *licenseUseCase) List(
	ctx context.Context,
	filter licenseDomain.ListFilter,
) ([]*licenseDomain.License, error) {
	offset := max(filter.Offset, 0)
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return l.licenseRepo.List(ctx, offset, limit)
}
