// Package dto provides data transfer objects for the license administration API.
package dto

import (
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	customValidation "github.com/scrilab/artale-auth/internal/validation"
)

// ProvenanceRequest names the payment flow behind a license.
type ProvenanceRequest struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
}

// UpsertLicenseRequest creates or renews a license.
//
// Exactly one of LicenseKey or IdentityDigest identifies the license. A plaintext
// key is digested on arrival and never stored.
type UpsertLicenseRequest struct {
	LicenseKey     string            `json:"license_key"`
	IdentityDigest string            `json:"identity_digest"`
	Name           string            `json:"name"`
	Plan           string            `json:"plan"`
	Permissions    map[string]bool   `json:"permissions"`
	ExpiresAt      *time.Time        `json:"expires_at"`
	Provenance     ProvenanceRequest `json:"provenance"`
	Note           string            `json:"note"`
}

// Validate checks the request shape. Field rules are enforced again by the use case.
func (r *UpsertLicenseRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.LicenseKey,
			validation.When(r.IdentityDigest == "", validation.Required, customValidation.NotBlank).
				Else(validation.Empty.Error("must be empty when identity_digest is set")),
			validation.Length(0, 255),
		),
		validation.Field(&r.IdentityDigest, customValidation.IdentityDigest),
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
	)
	return customValidation.WrapValidationError(err)
}

// ToInput maps the request to the use case input, digesting a plaintext key.
func (r *UpsertLicenseRequest) ToInput() licenseDomain.UpsertInput {
	digest := r.IdentityDigest
	if digest == "" {
		digest = licenseDomain.DigestIdentity(strings.TrimSpace(r.LicenseKey))
	}

	return licenseDomain.UpsertInput{
		IdentityDigest: digest,
		Name:           r.Name,
		Plan:           r.Plan,
		Permissions:    r.Permissions,
		ExpiresAt:      r.ExpiresAt,
		Provenance: licenseDomain.Provenance{
			Source:    r.Provenance.Source,
			Reference: r.Provenance.Reference,
		},
		Note: r.Note,
	}
}

// DeactivateLicenseRequest carries the refund or revocation reason.
type DeactivateLicenseRequest struct {
	Reason string `json:"reason"`
}

// Validate checks the deactivation request.
func (r *DeactivateLicenseRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
	)
	return customValidation.WrapValidationError(err)
}
