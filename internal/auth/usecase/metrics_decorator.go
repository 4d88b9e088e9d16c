package usecase

import (
	"context"
	"time"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/metrics"
)

const metricsDomain = "auth"

// authUseCaseWithMetrics decorates AuthUseCase with metrics instrumentation.
type authUseCaseWithMetrics struct {
	next    AuthUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthUseCaseWithMetrics wraps an AuthUseCase with metrics recording.
// Rejected logins and validations are also counted by their machine code.
func NewAuthUseCaseWithMetrics(useCase AuthUseCase, m metrics.BusinessMetrics) AuthUseCase {
	return &authUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *authUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	a.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	a.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Login records metrics for login attempts.
func (a *authUseCaseWithMetrics) Login(
	ctx context.Context,
	input authDomain.LoginInput,
) (*authDomain.LoginOutput, error) {
	start := time.Now()
	output, err := a.next.Login(ctx, input)
	a.record(ctx, "login", start, err)
	if err != nil {
		a.metrics.RecordRejection(ctx, metricsDomain, string(authDomain.CodeFor(err)))
	}
	return output, err
}

// Logout records metrics for logout operations.
func (a *authUseCaseWithMetrics) Logout(ctx context.Context, token string) error {
	start := time.Now()
	err := a.next.Logout(ctx, token)
	a.record(ctx, "logout", start, err)
	return err
}

// Validate records metrics for session validations.
func (a *authUseCaseWithMetrics) Validate(
	ctx context.Context,
	token, clientIP string,
) (*authDomain.ValidateOutput, error) {
	start := time.Now()
	output, err := a.next.Validate(ctx, token, clientIP)
	a.record(ctx, "validate", start, err)
	if err != nil {
		a.metrics.RecordRejection(ctx, metricsDomain, string(authDomain.CodeFor(err)))
	}
	return output, err
}

// Stats records metrics for stats reads.
func (a *authUseCaseWithMetrics) Stats(ctx context.Context) (*authDomain.SessionStats, error) {
	start := time.Now()
	stats, err := a.next.Stats(ctx)
	a.record(ctx, "session_stats", start, err)
	return stats, err
}

// SweepExpired records metrics for expiry sweeps.
func (a *authUseCaseWithMetrics) SweepExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := a.next.SweepExpired(ctx)
	a.record(ctx, "sweep_expired", start, err)
	return removed, err
}

// RevokeAllFor records metrics for bulk session revocation.
func (a *authUseCaseWithMetrics) RevokeAllFor(ctx context.Context, identityDigest string) (int64, error) {
	start := time.Now()
	revoked, err := a.next.RevokeAllFor(ctx, identityDigest)
	a.record(ctx, "revoke_all", start, err)
	return revoked, err
}
