package domain

import (
	"github.com/scrilab/artale-auth/internal/errors"
)

// Authentication errors. Every rejection maps to exactly one Code.
var (
	// ErrMissingIdentity indicates a login without a license key.
	ErrMissingIdentity = errors.Wrap(errors.ErrInvalidInput, "license key is required")

	// ErrInvalidCredentials covers unknown and malformed identities alike.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrAccountDeactivated indicates the license exists but is not active.
	ErrAccountDeactivated = errors.Wrap(errors.ErrUnauthorized, "account deactivated")

	// ErrAccountExpired indicates the license expiry has been reached.
	ErrAccountExpired = errors.Wrap(errors.ErrUnauthorized, "account expired")

	// ErrAlreadyLoggedIn indicates a live session exists and force login was not requested.
	ErrAlreadyLoggedIn = errors.Wrap(errors.ErrUnauthorized, "already logged in elsewhere")

	// ErrSessionInvalid indicates an unknown, expired or revoked session token.
	ErrSessionInvalid = errors.Wrap(errors.ErrUnauthorized, "session invalid")

	// ErrSessionNotFound is returned by session stores for a missing or expired token.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")

	// ErrInvalidToken indicates a token outside the accepted shape.
	ErrInvalidToken = errors.Wrap(errors.ErrInvalidInput, "invalid session token")

	// ErrRateLimited indicates the client exceeded its quota on this request.
	ErrRateLimited = errors.Wrap(errors.ErrRateLimited, "too many requests")

	// ErrIPBlocked indicates the client IP is serving a temporary block.
	ErrIPBlocked = errors.Wrap(errors.ErrRateLimited, "ip temporarily blocked")

	// ErrServiceUnavailable indicates a backing store failed or timed out.
	ErrServiceUnavailable = errors.Wrap(errors.ErrUnavailable, "authentication store unavailable")

	// ErrCorruptSession indicates a stored session failed validation on read.
	ErrCorruptSession = errors.New("corrupt session record")
)

// CodeFor returns the machine code for an authentication error.
func CodeFor(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountDeactivated):
		return CodeAccountDeactivated
	case errors.Is(err, ErrAccountExpired):
		return CodeAccountExpired
	case errors.Is(err, ErrAlreadyLoggedIn):
		return CodeAlreadyLoggedIn
	case errors.Is(err, ErrSessionInvalid):
		return CodeSessionInvalid
	case errors.Is(err, ErrInvalidToken):
		return CodeInvalidToken
	case errors.Is(err, ErrIPBlocked):
		return CodeIPBlocked
	case errors.Is(err, errors.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, errors.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, errors.ErrInvalidInput):
		return CodeInvalidRequest
	case errors.Is(err, errors.ErrUnavailable):
		return CodeServiceUnavailable
	default:
		return CodeInternalError
	}
}
