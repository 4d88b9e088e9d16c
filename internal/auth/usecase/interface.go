// Package usecase implements login, session validation and session maintenance.
package usecase

import (
	"context"
	"time"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/authcache"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	"github.com/scrilab/artale-auth/internal/ratelimit"
	"github.com/scrilab/artale-auth/internal/worker"
)

// SessionRepository persists sessions keyed by token hash.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *authDomain.Session) error

	// GetByTokenHash returns the session for a token hash, live or not.
	// Returns ErrSessionNotFound if absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Session, error)

	// Delete removes one session and reports whether it existed.
	Delete(ctx context.Context, tokenHash string) (bool, error)

	// DeleteAllFor removes every session of an identity digest.
	DeleteAllFor(ctx context.Context, identityDigest string) (int64, error)

	// HasLiveFor reports whether the identity digest holds a session live at now.
	HasLiveFor(ctx context.Context, identityDigest string, now time.Time) (bool, error)

	// DeleteExpired removes every session with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// CountActive returns the number of sessions live at now.
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

// AttemptRepository stores the audit trail of rejected logins.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *authDomain.AuthAttempt) error
}

// LicenseRepository is the slice of the license store authentication reads and updates.
type LicenseRepository interface {
	// Get returns the current license. Returns ErrLicenseNotFound if absent.
	Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error)

	// RecordLogin increments the login counter and stores the last login time and IP.
	RecordLogin(ctx context.Context, identityDigest, clientIP string, at time.Time) error
}

// OutcomeCache holds recent login outcomes. *authcache.Cache satisfies it.
type OutcomeCache interface {
	Get(identityDigest string) (authcache.Outcome, bool)
	Put(identityDigest string, outcome authcache.Outcome)
	Invalidate(identityDigest string)
	Len() int
}

// GuardStats exposes the IP guard tables. *ratelimit.IPGuard satisfies it.
type GuardStats interface {
	Stats(ctx context.Context) ratelimit.Stats
}

// TaskSubmitter queues background work. *worker.Pool satisfies it.
type TaskSubmitter interface {
	Submit(name string, fn worker.TaskFunc) error
}

// AuthUseCase is the authenticator and session validator.
type AuthUseCase interface {
	// Login checks the license for an identity and issues a session.
	//
	// With ForceLogin every existing session of the identity is revoked before
	// the new one is created. Without it an existing live session rejects the
	// login with ErrAlreadyLoggedIn. Concurrent logins of one identity are
	// serialized, so at most one of them ends up holding a live session.
	//
	// Returns ErrMissingIdentity, ErrInvalidCredentials, ErrAccountDeactivated,
	// ErrAccountExpired, ErrAlreadyLoggedIn or ErrServiceUnavailable.
	Login(ctx context.Context, input authDomain.LoginInput) (*authDomain.LoginOutput, error)

	// Logout revokes a session token. Unknown and malformed tokens are not an error.
	Logout(ctx context.Context, token string) error

	// Validate checks a session token and re-reads its license, bypassing the
	// login cache. A session whose license is no longer valid is revoked.
	//
	// Returns ErrInvalidToken, ErrSessionInvalid, ErrAccountDeactivated,
	// ErrAccountExpired or ErrServiceUnavailable.
	Validate(ctx context.Context, token, clientIP string) (*authDomain.ValidateOutput, error)

	// Stats returns the active session count and the in-process table sizes.
	Stats(ctx context.Context) (*authDomain.SessionStats, error)

	// SweepExpired deletes expired sessions and returns how many were removed.
	SweepExpired(ctx context.Context) (int64, error)

	// RevokeAllFor deletes every session of an identity digest and drops its cached outcome.
	RevokeAllFor(ctx context.Context, identityDigest string) (int64, error)
}
