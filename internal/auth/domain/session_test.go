package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

func validSession() *Session {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Session{
		TokenHash:      strings.Repeat("a", 64),
		IdentityDigest: strings.Repeat("b", 64),
		OriginIP:       "10.0.0.1",
		CreatedAt:      now,
		ExpiresAt:      now.Add(24 * time.Hour),
	}
}

func TestSession_IsLiveAt(t *testing.T) {
	s := validSession()

	assert.True(t, s.IsLiveAt(s.CreatedAt))
	assert.True(t, s.IsLiveAt(s.ExpiresAt.Add(-time.Nanosecond)))
	assert.False(t, s.IsLiveAt(s.ExpiresAt))
	assert.False(t, s.IsLiveAt(s.ExpiresAt.Add(time.Second)))
}

func TestSession_Validate(t *testing.T) {
	assert.NoError(t, validSession().Validate())

	tests := []struct {
		name   string
		mutate func(s *Session)
	}{
		{name: "missing token hash", mutate: func(s *Session) { s.TokenHash = "" }},
		{name: "missing identity digest", mutate: func(s *Session) { s.IdentityDigest = "" }},
		{name: "zero expiry", mutate: func(s *Session) { s.ExpiresAt = time.Time{} }},
		{name: "expiry before creation", mutate: func(s *Session) { s.ExpiresAt = s.CreatedAt.Add(-time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrCorruptSession)
		})
	}
}

func TestTruncateIdentity(t *testing.T) {
	assert.Equal(t, "3f2a…", TruncateIdentity("3f2a9c1e-0000-4000-8000-000000000000"))
	assert.Equal(t, "…", TruncateIdentity("abc"))
	assert.Equal(t, "…", TruncateIdentity(""))
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err      error
		expected Code
	}{
		{err: nil, expected: ""},
		{err: ErrInvalidCredentials, expected: CodeUnauthorized},
		{err: ErrAccountDeactivated, expected: CodeAccountDeactivated},
		{err: ErrAccountExpired, expected: CodeAccountExpired},
		{err: ErrAlreadyLoggedIn, expected: CodeAlreadyLoggedIn},
		{err: ErrSessionInvalid, expected: CodeSessionInvalid},
		{err: ErrInvalidToken, expected: CodeInvalidToken},
		{err: apperrors.Wrap(apperrors.ErrInvalidInput, "uuid: cannot be blank"), expected: CodeInvalidRequest},
		{err: ErrRateLimited, expected: CodeRateLimited},
		{err: ErrIPBlocked, expected: CodeIPBlocked},
		{err: apperrors.Wrap(ErrServiceUnavailable, "deadline"), expected: CodeServiceUnavailable},
		{err: ErrCorruptSession, expected: CodeInternalError},
		{err: assertAnError{}, expected: CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, CodeFor(tt.err))
		})
	}
}

type assertAnError struct{}

func (assertAnError) Error() string { return "boom" }

func TestNewAuthAttempt(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	a := NewAuthAttempt(strings.Repeat("c", 64), "10.0.0.9", ReasonUnknownIdentity, now)

	assert.Equal(t, 7, int(a.ID.Version()))
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.Equal(t, ReasonUnknownIdentity, a.Reason)
}

func TestValidateTokenShape(t *testing.T) {
	tests := []struct {
		name  string
		token string
		valid bool
	}{
		{name: "issued length", token: strings.Repeat("A", 43), valid: true},
		{name: "minimum length", token: strings.Repeat("a", MinTokenLength), valid: true},
		{name: "maximum length", token: strings.Repeat("-", MaxTokenLength), valid: true},
		{name: "empty", token: "", valid: false},
		{name: "too short", token: strings.Repeat("a", MinTokenLength-1), valid: false},
		{name: "too long", token: strings.Repeat("a", MaxTokenLength+1), valid: false},
		{name: "padding", token: strings.Repeat("a", 42) + "=", valid: false},
		{name: "whitespace", token: strings.Repeat("a", 40) + " ab", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenShape(tt.token)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, CodeInvalidToken, CodeFor(err))
		})
	}
}
