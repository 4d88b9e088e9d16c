// Package repository implements license persistence for PostgreSQL, MySQL and MongoDB.
package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	apperrors "github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

const licenseColumns = `identity_digest, active, name, plan, permissions, login_count, last_login_at,
	last_login_ip, provenance_source, provenance_reference, note, expires_at, deactivated_at,
	deactivation_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanLicense decodes one licenses row and validates it.
func scanLicense(row rowScanner) (*licenseDomain.License, error) {
	var (
		license            licenseDomain.License
		permissions        []byte
		lastLoginAt        sql.NullTime
		lastLoginIP        sql.NullString
		expiresAt          sql.NullTime
		deactivatedAt      sql.NullTime
		deactivationReason sql.NullString
	)

	err := row.Scan(
		&license.IdentityDigest,
		&license.Active,
		&license.Name,
		&license.Plan,
		&permissions,
		&license.LoginCount,
		&lastLoginAt,
		&lastLoginIP,
		&license.Provenance.Source,
		&license.Provenance.Reference,
		&license.Note,
		&expiresAt,
		&deactivatedAt,
		&deactivationReason,
		&license.CreatedAt,
		&license.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	license.Permissions = map[string]bool{}
	if len(permissions) > 0 {
		if err := json.Unmarshal(permissions, &license.Permissions); err != nil {
			return nil, apperrors.Wrap(licenseDomain.ErrCorruptRecord, "invalid permissions: "+err.Error())
		}
	}
	license.LastLoginAt = nullTimePtr(lastLoginAt)
	license.LastLoginIP = lastLoginIP.String
	license.ExpiresAt = nullTimePtr(expiresAt)
	license.DeactivatedAt = nullTimePtr(deactivatedAt)
	license.DeactivationReason = deactivationReason.String

	if err := license.Validate(); err != nil {
		return nil, err
	}
	return &license, nil
}

// licenseValues returns the column values in licenseColumns order.
// utc converts every timestamp to UTC for drivers that drop the zone.
func licenseValues(license *licenseDomain.License, utc bool) ([]any, error) {
	permissions := license.Permissions
	if permissions == nil {
		permissions = map[string]bool{}
	}
	permissionsJSON, err := json.Marshal(permissions)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal permissions")
	}

	conv := func(t time.Time) time.Time {
		if utc {
			return t.UTC()
		}
		return t
	}
	nullable := func(t *time.Time) sql.NullTime {
		if t == nil {
			return sql.NullTime{}
		}
		return sql.NullTime{Time: conv(*t), Valid: true}
	}

	return []any{
		license.IdentityDigest,
		license.Active,
		license.Name,
		license.Plan,
		string(permissionsJSON),
		license.LoginCount,
		nullable(license.LastLoginAt),
		nullString(license.LastLoginIP),
		license.Provenance.Source,
		license.Provenance.Reference,
		license.Note,
		nullable(license.ExpiresAt),
		nullable(license.DeactivatedAt),
		nullString(license.DeactivationReason),
		conv(license.CreatedAt),
		conv(license.UpdatedAt),
	}, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
