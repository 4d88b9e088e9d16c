// Package domain defines the license record that gates authentication.
//
// A license is keyed by the SHA-256 digest of the license key a customer
// presents at login. The plaintext key is never stored.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/scrilab/artale-auth/internal/validation"
)

// Well-known permission keys.
const (
	PermissionScriptAccess = "script_access"
	PermissionConfigModify = "config_modify"
)

// Provenance records which payment flow created a license.
type Provenance struct {
	Source    string // gumroad, oxapay, simpleswap, paypal, itchio, admin
	Reference string // order or payment id at the source
}

// License is the durable entitlement record for one identity digest.
type License struct {
	IdentityDigest     string
	Active             bool
	Name               string
	Plan               string
	Permissions        map[string]bool
	LoginCount         int64
	LastLoginAt        *time.Time
	LastLoginIP        string
	Provenance         Provenance
	Note               string
	ExpiresAt          *time.Time // nil never expires
	DeactivatedAt      *time.Time
	DeactivationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DigestIdentity returns the lowercase hex SHA-256 of a license key.
func DigestIdentity(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

// IsExpiredAt reports whether the license is expired at now. A license whose
// expiry equals now is expired.
func (l *License) IsExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Validate checks the fields every stored license must carry.
// Repositories call it on every decoded record.
func (l *License) Validate() error {
	err := validation.ValidateStruct(l,
		validation.Field(&l.IdentityDigest, validation.Required, customValidation.IdentityDigest),
		validation.Field(&l.CreatedAt, validation.Required),
		validation.Field(&l.UpdatedAt, validation.Required),
		validation.Field(&l.LoginCount, validation.Min(int64(0))),
	)
	if err != nil {
		return wrapCorrupt(err)
	}
	if err := validation.Validate(l.Provenance.Source, validation.Required); err != nil {
		return wrapCorrupt(err)
	}
	if !l.Active && l.DeactivatedAt == nil {
		return wrapCorrupt(validation.NewError("validation_deactivated_at", "inactive license without deactivated_at"))
	}
	return nil
}

// Clone returns a deep copy, safe to hand to another goroutine or cache.
func (l *License) Clone() *License {
	if l == nil {
		return nil
	}
	c := *l
	c.Permissions = maps.Clone(l.Permissions)
	c.LastLoginAt = cloneTime(l.LastLoginAt)
	c.ExpiresAt = cloneTime(l.ExpiresAt)
	c.DeactivatedAt = cloneTime(l.DeactivatedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
