package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	authService "github.com/scrilab/artale-auth/internal/auth/service"
	"github.com/scrilab/artale-auth/internal/authcache"
	"github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// Config tunes the authenticator.
type Config struct {
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// authUseCase implements AuthUseCase.
type authUseCase struct {
	cfg          Config
	sessionRepo  SessionRepository
	licenseRepo  LicenseRepository
	attemptRepo  AttemptRepository
	tokenService authService.TokenService
	cache        OutcomeCache
	guard        GuardStats
	tasks        TaskSubmitter
	logger       *slog.Logger
	locks        *keyedMutex
}

// NewAuthUseCase creates the authenticator. guard may be nil when the IP guard is disabled.
func NewAuthUseCase(
	cfg Config,
	sessionRepo SessionRepository,
	licenseRepo LicenseRepository,
	attemptRepo AttemptRepository,
	tokenService authService.TokenService,
	cache OutcomeCache,
	guard GuardStats,
	tasks TaskSubmitter,
	logger *slog.Logger,
) AuthUseCase {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &authUseCase{
		cfg:          cfg,
		sessionRepo:  sessionRepo,
		licenseRepo:  licenseRepo,
		attemptRepo:  attemptRepo,
		tokenService: tokenService,
		cache:        cache,
		guard:        guard,
		tasks:        tasks,
		logger:       logger,
		locks:        newKeyedMutex(),
	}
}

// Login runs the license check and the revoke-then-create session sequence.
//
// The cache is only read when ForceLogin is false, and a cache hit only
// replaces the license read: session resolution always hits the store.
func (a *authUseCase) Login(
	ctx context.Context,
	input authDomain.LoginInput,
) (*authDomain.LoginOutput, error) {
	identity := strings.TrimSpace(input.Identity)
	if identity == "" {
		return nil, authDomain.ErrMissingIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	digest := licenseDomain.DigestIdentity(identity)
	logger := a.logger.With(
		slog.String("identity", authDomain.TruncateIdentity(identity)),
		slog.String("client_ip", input.ClientIP),
	)

	unlock, err := a.locks.Lock(ctx, digest)
	if err != nil {
		return nil, a.storeError(ctx, logger, "wait for identity lock", err)
	}
	defer unlock()

	// The license is read under the identity lock: a deactivation that commits
	// after this read revokes through RevokeAllFor, which waits for the lock
	// and so also removes the session created below.
	license, fromStore, err := a.resolveLicense(ctx, logger, digest, input)
	if err != nil {
		return nil, err
	}

	now := a.cfg.Now().UTC()

	if input.ForceLogin {
		revoked, err := a.sessionRepo.DeleteAllFor(ctx, digest)
		if err != nil {
			return nil, a.storeError(ctx, logger, "revoke existing sessions", err)
		}
		if revoked > 0 {
			logger.Info("existing sessions revoked by force login", slog.Int64("revoked", revoked))
		}
	} else {
		live, err := a.sessionRepo.HasLiveFor(ctx, digest, now)
		if err != nil {
			return nil, a.storeError(ctx, logger, "check live session", err)
		}
		if live {
			logger.Warn("login rejected", slog.String("code", string(authDomain.CodeAlreadyLoggedIn)))
			return nil, authDomain.ErrAlreadyLoggedIn
		}
	}

	plainToken, tokenHash, err := a.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	session := &authDomain.Session{
		TokenHash:      tokenHash,
		IdentityDigest: digest,
		OriginIP:       input.ClientIP,
		CreatedAt:      now,
		ExpiresAt:      now.Add(a.cfg.SessionTTL),
	}
	if err := a.sessionRepo.Create(ctx, session); err != nil {
		return nil, a.storeError(ctx, logger, "create session", err)
	}

	a.submit(logger, "record_login", func(taskCtx context.Context) error {
		return a.licenseRepo.RecordLogin(taskCtx, digest, input.ClientIP, now)
	})

	if fromStore != nil {
		a.cache.Put(digest, authcache.Outcome{Success: true, License: license, ComputedAt: *fromStore})
	}

	logger.Info("login succeeded", slog.Bool("force_login", input.ForceLogin))

	return &authDomain.LoginOutput{
		License:   license,
		Token:     plainToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// resolveLicense returns the license for digest from the cache or the store.
// fromStore is the read time when the store was consulted, nil on a cache hit.
func (a *authUseCase) resolveLicense(
	ctx context.Context,
	logger *slog.Logger,
	digest string,
	input authDomain.LoginInput,
) (license *licenseDomain.License, fromStore *time.Time, err error) {
	if !input.ForceLogin {
		if outcome, ok := a.cache.Get(digest); ok {
			if !outcome.Success {
				logger.Warn("login rejected from cache", slog.String("code", string(authDomain.CodeFor(outcome.Err))))
				return nil, nil, outcome.Err
			}
			if checkLicense(outcome.License, a.cfg.Now()) == nil {
				return outcome.License, nil, nil
			}
			// Expired since it was cached; let the store read decide.
			a.cache.Invalidate(digest)
		}
	}

	readAt := a.cfg.Now()
	license, err = a.licenseRepo.Get(ctx, digest)
	if err != nil {
		if errors.Is(err, licenseDomain.ErrLicenseNotFound) {
			a.reject(logger, digest, input.ClientIP, authDomain.ReasonUnknownIdentity, authDomain.ErrInvalidCredentials, readAt)
			return nil, nil, authDomain.ErrInvalidCredentials
		}
		return nil, nil, a.storeError(ctx, logger, "get license", err)
	}

	if err := checkLicense(license, readAt); err != nil {
		reason := authDomain.ReasonDeactivated
		if errors.Is(err, authDomain.ErrAccountExpired) {
			reason = authDomain.ReasonExpired
		}
		a.reject(logger, digest, input.ClientIP, reason, err, readAt)
		return nil, nil, err
	}

	return license, &readAt, nil
}

// reject caches a failed outcome and queues its audit entry.
func (a *authUseCase) reject(
	logger *slog.Logger,
	digest, clientIP, reason string,
	err error,
	computedAt time.Time,
) {
	a.cache.Put(digest, authcache.Outcome{Err: err, ComputedAt: computedAt})
	logger.Warn("login rejected",
		slog.String("code", string(authDomain.CodeFor(err))),
		slog.String("identity_digest", digest),
	)

	attempt := authDomain.NewAuthAttempt(digest, clientIP, reason, computedAt)
	a.submit(logger, "record_auth_attempt", func(taskCtx context.Context) error {
		return a.attemptRepo.Create(taskCtx, attempt)
	})
}

// Logout deletes the session behind token, if any.
func (a *authUseCase) Logout(ctx context.Context, token string) error {
	if authDomain.ValidateTokenShape(token) != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	if _, err := a.sessionRepo.Delete(ctx, a.tokenService.HashToken(token)); err != nil {
		return a.storeError(ctx, a.logger, "delete session", err)
	}
	return nil
}

// Validate verifies a session and re-reads its license from the store.
func (a *authUseCase) Validate(
	ctx context.Context,
	token, clientIP string,
) (*authDomain.ValidateOutput, error) {
	if err := authDomain.ValidateTokenShape(token); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	logger := a.logger.With(slog.String("client_ip", clientIP))
	tokenHash := a.tokenService.HashToken(token)

	session, err := a.sessionRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, authDomain.ErrSessionNotFound) {
			return nil, authDomain.ErrSessionInvalid
		}
		return nil, a.storeError(ctx, logger, "get session", err)
	}

	now := a.cfg.Now()
	if !session.IsLiveAt(now) {
		a.dropSession(ctx, logger, tokenHash)
		return nil, authDomain.ErrSessionInvalid
	}

	logger = logger.With(slog.String("identity_digest", session.IdentityDigest))

	license, err := a.licenseRepo.Get(ctx, session.IdentityDigest)
	a.cache.Invalidate(session.IdentityDigest)
	if err != nil {
		if errors.Is(err, licenseDomain.ErrLicenseNotFound) {
			logger.Warn("session references a missing license")
			a.dropSession(ctx, logger, tokenHash)
			return nil, authDomain.ErrSessionInvalid
		}
		return nil, a.storeError(ctx, logger, "get license", err)
	}

	if err := checkLicense(license, now); err != nil {
		logger.Warn("session rejected", slog.String("code", string(authDomain.CodeFor(err))))
		a.dropSession(ctx, logger, tokenHash)
		return nil, err
	}

	return &authDomain.ValidateOutput{License: license, Session: session}, nil
}

// dropSession deletes a session that can no longer validate. Failures are logged;
// the caller is rejected either way.
func (a *authUseCase) dropSession(ctx context.Context, logger *slog.Logger, tokenHash string) {
	if _, err := a.sessionRepo.Delete(ctx, tokenHash); err != nil {
		logger.Error("failed to revoke invalid session", slog.Any("error", err))
	}
}

// Stats returns the active session count and in-process table sizes.
func (a *authUseCase) Stats(ctx context.Context) (*authDomain.SessionStats, error) {
	active, err := a.sessionRepo.CountActive(ctx, a.cfg.Now())
	if err != nil {
		return nil, a.storeError(ctx, a.logger, "count active sessions", err)
	}

	stats := &authDomain.SessionStats{
		ActiveSessions: active,
		CacheSize:      a.cache.Len(),
	}
	if a.guard != nil {
		g := a.guard.Stats(ctx)
		stats.BlockedIPs = g.BlockedIPs
		stats.TrackedIPs = g.TrackedIPs
		stats.MemoryGuardActive = g.MemoryGuardActive
	}
	return stats, nil
}

// SweepExpired deletes every expired session.
func (a *authUseCase) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := a.sessionRepo.DeleteExpired(ctx, a.cfg.Now())
	if err != nil {
		return 0, a.storeError(ctx, a.logger, "sweep expired sessions", err)
	}
	a.logger.Info("expired sessions swept", slog.Int64("removed", removed))
	return removed, nil
}

// RevokeAllFor deletes every session of identityDigest under the identity lock,
// so it cannot interleave with a login of the same identity.
func (a *authUseCase) RevokeAllFor(ctx context.Context, identityDigest string) (int64, error) {
	unlock, err := a.locks.Lock(ctx, identityDigest)
	if err != nil {
		return 0, a.storeError(ctx, a.logger, "wait for identity lock", err)
	}
	defer unlock()

	revoked, err := a.sessionRepo.DeleteAllFor(ctx, identityDigest)
	if err != nil {
		return 0, a.storeError(ctx, a.logger, "revoke sessions", err)
	}
	a.cache.Invalidate(identityDigest)
	return revoked, nil
}

// submit queues a background task. A rejected task is logged, never retried.
func (a *authUseCase) submit(logger *slog.Logger, name string, fn func(ctx context.Context) error) {
	if err := a.tasks.Submit(name, fn); err != nil {
		logger.Error("background task dropped", slog.String("task", name), slog.Any("error", err))
	}
}

// storeError logs a dependency failure and maps it to ErrServiceUnavailable.
// Corrupt records are not an outage and pass through unchanged.
func (a *authUseCase) storeError(ctx context.Context, logger *slog.Logger, op string, err error) error {
	if errors.Is(err, licenseDomain.ErrCorruptRecord) || errors.Is(err, authDomain.ErrCorruptSession) {
		logger.Error("corrupt record", slog.String("operation", op), slog.Any("error", err))
		return err
	}
	logger.Error("authentication store failure",
		slog.String("operation", op),
		slog.Bool("timeout", ctx.Err() != nil),
		slog.Any("error", err),
	)
	return authDomain.ErrServiceUnavailable
}

// checkLicense applies the active and expiry rules shared by login and validate.
func checkLicense(license *licenseDomain.License, now time.Time) error {
	if !license.Active {
		return authDomain.ErrAccountDeactivated
	}
	if license.IsExpiredAt(now) {
		return authDomain.ErrAccountExpired
	}
	return nil
}
