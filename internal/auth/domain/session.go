package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/scrilab/artale-auth/internal/errors"
	customValidation "github.com/scrilab/artale-auth/internal/validation"
)

// Session is an issued login. Only the SHA-256 of the token is stored.
type Session struct {
	TokenHash      string
	IdentityDigest string
	OriginIP       string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// IsLiveAt reports whether the session is usable at now.
func (s *Session) IsLiveAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Validate checks a decoded session record.
func (s *Session) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.TokenHash, validation.Required, customValidation.IdentityDigest),
		validation.Field(&s.IdentityDigest, validation.Required, customValidation.IdentityDigest),
		validation.Field(&s.CreatedAt, validation.Required),
		validation.Field(&s.ExpiresAt, validation.Required),
	)
	if err != nil {
		return errors.Wrap(ErrCorruptSession, err.Error())
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return errors.Wrap(ErrCorruptSession, "expires_at must be after created_at")
	}
	return nil
}

// TruncateIdentity returns a log-safe prefix of a license key.
func TruncateIdentity(identity string) string {
	const keep = 4
	r := []rune(identity)
	if len(r) <= keep {
		return "…"
	}
	return string(r[:keep]) + "…"
}

// ValidateTokenShape rejects tokens outside the issued envelope without touching any store.
func ValidateTokenShape(token string) error {
	err := validation.Validate(token,
		validation.Required,
		validation.Length(MinTokenLength, MaxTokenLength),
		customValidation.TokenAlphabet,
	)
	if err != nil {
		return ErrInvalidToken
	}
	return nil
}
