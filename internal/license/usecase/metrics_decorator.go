package usecase

import (
	"context"
	"time"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	"github.com/scrilab/artale-auth/internal/metrics"
)

// licenseUseCaseWithMetrics decorates LicenseUseCase with metrics instrumentation.
type licenseUseCaseWithMetrics struct {
	next    LicenseUseCase
	metrics metrics.BusinessMetrics
}

// NewLicenseUseCaseWithMetrics wraps a LicenseUseCase with metrics recording.
func NewLicenseUseCaseWithMetrics(useCase LicenseUseCase, m metrics.BusinessMetrics) LicenseUseCase {
	return &licenseUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *licenseUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	l.metrics.RecordOperation(ctx, "license", operation, status)
	l.metrics.RecordDuration(ctx, "license", operation, time.Since(start), status)
}

// Upsert records metrics for license upserts.
func (l *licenseUseCaseWithMetrics) Upsert(
	ctx context.Context,
	input licenseDomain.UpsertInput,
) (*licenseDomain.UpsertOutput, error) {
	start := time.Now()
	output, err := l.next.Upsert(ctx, input)
	l.record(ctx, "upsert", start, err)
	return output, err
}

// Deactivate records metrics for license deactivation.
func (l *licenseUseCaseWithMetrics) Deactivate(
	ctx context.Context,
	input licenseDomain.DeactivateInput,
) (*licenseDomain.DeactivateOutput, error) {
	start := time.Now()
	output, err := l.next.Deactivate(ctx, input)
	l.record(ctx, "deactivate", start, err)
	return output, err
}

// Reactivate records metrics for license reactivation.
func (l *licenseUseCaseWithMetrics) Reactivate(
	ctx context.Context,
	identityDigest string,
) (*licenseDomain.License, error) {
	start := time.Now()
	license, err := l.next.Reactivate(ctx, identityDigest)
	l.record(ctx, "reactivate", start, err)
	return license, err
}

// Get records metrics for license lookups.
func (l *licenseUseCaseWithMetrics) Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	start := time.Now()
	license, err := l.next.Get(ctx, identityDigest)
	l.record(ctx, "get", start, err)
	return license, err
}

// List records metrics for license listing.
func (l *licenseUseCaseWithMetrics) List(
	ctx context.Context,
	filter licenseDomain.ListFilter,
) ([]*licenseDomain.License, error) {
	start := time.Now()
	licenses, err := l.next.List(ctx, filter)
	l.record(ctx, "list", start, err)
	return licenses, err
}
