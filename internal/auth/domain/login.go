package domain

import (
	"time"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// LoginInput is a login request after transport decoding.
type LoginInput struct {
	Identity   string
	ForceLogin bool
	ClientIP   string
}

// LoginOutput carries the issued token. Token is only ever returned here.
type LoginOutput struct {
	License   *licenseDomain.License
	Token     string
	ExpiresAt time.Time
}

// ValidateOutput is the result of a successful session validation.
// License is read from the store on every call.
type ValidateOutput struct {
	License *licenseDomain.License
	Session *Session
}

// SessionStats is the operational snapshot served by the stats endpoint.
type SessionStats struct {
	ActiveSessions    int64
	CacheSize         int
	BlockedIPs        int
	TrackedIPs        int
	MemoryGuardActive bool
}
