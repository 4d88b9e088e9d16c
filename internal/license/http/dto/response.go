package dto

import (
	"time"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// ProvenanceResponse names the payment flow behind a license.
type ProvenanceResponse struct {
	Source    string `json:"source"`
	Reference string `json:"reference,omitempty"`
}

// LicenseResponse is the administrative view of a license. It never carries a key.
type LicenseResponse struct {
	IdentityDigest     string             `json:"identity_digest"`
	Active             bool               `json:"active"`
	Name               string             `json:"name"`
	Plan               string             `json:"plan"`
	Permissions        map[string]bool    `json:"permissions"`
	LoginCount         int64              `json:"login_count"`
	LastLoginAt        *time.Time         `json:"last_login_at,omitempty"`
	LastLoginIP        string             `json:"last_login_ip,omitempty"`
	Provenance         ProvenanceResponse `json:"provenance"`
	Note               string             `json:"note,omitempty"`
	ExpiresAt          *time.Time         `json:"expires_at,omitempty"`
	DeactivatedAt      *time.Time         `json:"deactivated_at,omitempty"`
	DeactivationReason string             `json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// MapLicenseToResponse converts a domain license to its API representation.
func MapLicenseToResponse(license *licenseDomain.License) LicenseResponse {
	permissions := license.Permissions
	if permissions == nil {
		permissions = map[string]bool{}
	}

	return LicenseResponse{
		IdentityDigest: license.IdentityDigest,
		Active:         license.Active,
		Name:           license.Name,
		Plan:           license.Plan,
		Permissions:    permissions,
		LoginCount:     license.LoginCount,
		LastLoginAt:    license.LastLoginAt,
		LastLoginIP:    license.LastLoginIP,
		Provenance: ProvenanceResponse{
			Source:    license.Provenance.Source,
			Reference: license.Provenance.Reference,
		},
		Note:               license.Note,
		ExpiresAt:          license.ExpiresAt,
		DeactivatedAt:      license.DeactivatedAt,
		DeactivationReason: license.DeactivationReason,
		CreatedAt:          license.CreatedAt,
		UpdatedAt:          license.UpdatedAt,
	}
}

// UpsertLicenseResponse reports the stored license and whether it was created.
type UpsertLicenseResponse struct {
	License LicenseResponse `json:"license"`
	Created bool            `json:"created"`
}

// DeactivateLicenseResponse reports the license and how many sessions ended.
type DeactivateLicenseResponse struct {
	License         LicenseResponse `json:"license"`
	RevokedSessions int64           `json:"revoked_sessions"`
}

// ListLicensesResponse is one page of licenses, newest first.
type ListLicensesResponse struct {
	Data []LicenseResponse `json:"data"`
}

// MapLicensesToListResponse converts a page of domain licenses.
func MapLicensesToListResponse(licenses []*licenseDomain.License) ListLicensesResponse {
	data := make([]LicenseResponse, 0, len(licenses))
	for _, license := range licenses {
		data = append(data, MapLicenseToResponse(license))
	}
	return ListLicensesResponse{Data: data}
}
