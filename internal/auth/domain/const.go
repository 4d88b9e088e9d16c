// Package domain defines sessions, login attempts and the authentication errors.
package domain

// Issued tokens are 32 random bytes in unpadded base64url (43 characters).
// Anything outside the envelope is rejected before any store is touched.
const (
	TokenBytes     = 32
	MinTokenLength = 32
	MaxTokenLength = 128
)

// Code is the stable machine-readable outcome returned to clients.
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeAccountDeactivated Code = "ACCOUNT_DEACTIVATED"
	CodeAccountExpired     Code = "ACCOUNT_EXPIRED"
	CodeAlreadyLoggedIn    Code = "ALREADY_LOGGED_IN"
	CodeSessionInvalid     Code = "SESSION_INVALID"
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeIPBlocked          Code = "IP_BLOCKED"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// Attempt reasons stored in the audit trail.
const (
	ReasonUnknownIdentity = "unknown_identity"
	ReasonDeactivated     = "deactivated"
	ReasonExpired         = "expired"
)
