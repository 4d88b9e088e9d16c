package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthAttempt is an audit entry for a rejected login. It never carries the raw identity.
type AuthAttempt struct {
	ID             uuid.UUID
	IdentityDigest string
	ClientIP       string
	Reason         string
	CreatedAt      time.Time
}

// NewAuthAttempt builds an attempt with a UUIDv7 id.
func NewAuthAttempt(identityDigest, clientIP, reason string, now time.Time) *AuthAttempt {
	return &AuthAttempt{
		ID:             uuid.Must(uuid.NewV7()),
		IdentityDigest: identityDigest,
		ClientIP:       clientIP,
		Reason:         reason,
		CreatedAt:      now.UTC(),
	}
}
