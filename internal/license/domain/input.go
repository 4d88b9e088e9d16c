package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/scrilab/artale-auth/internal/validation"
)

// Known provenance sources.
var provenanceSources = []any{"gumroad", "oxapay", "simpleswap", "paypal", "itchio", "admin"}

// UpsertInput is what a payment flow supplies for a confirmed payment.
type UpsertInput struct {
	IdentityDigest string
	Name           string
	Plan           string
	Permissions    map[string]bool
	ExpiresAt      *time.Time
	Provenance     Provenance
	Note           string
}

// Validate checks the upsert input.
func (i UpsertInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.IdentityDigest, validation.Required, customValidation.IdentityDigest),
		validation.Field(&i.Name, customValidation.NotBlank, validation.Length(0, 255)),
		validation.Field(&i.Plan, validation.Length(0, 255)),
		validation.Field(&i.Note, validation.Length(0, 2000)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	err = validation.ValidateStruct(&i.Provenance,
		validation.Field(&i.Provenance.Source, validation.Required, validation.In(provenanceSources...)),
		validation.Field(&i.Provenance.Reference, validation.Length(0, 255)),
	)
	return customValidation.WrapValidationError(err)
}

// ListFilter pages through licenses ordered by creation time, newest first.
type ListFilter struct {
	Offset int
	Limit  int
}

// UpsertOutput reports whether the upsert created the license.
type UpsertOutput struct {
	License *License
	Created bool
}

// DeactivateInput is a refund, chargeback or administrative revocation.
type DeactivateInput struct {
	IdentityDigest string
	Reason         string
}

// Validate checks the deactivation input.
func (i DeactivateInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.IdentityDigest, validation.Required, customValidation.IdentityDigest),
		validation.Field(&i.Reason, validation.Required, customValidation.NotBlank, validation.Length(1, 500)),
	)
	return customValidation.WrapValidationError(err)
}

// DeactivateOutput carries the updated license and how many sessions were revoked.
type DeactivateOutput struct {
	License         *License
	RevokedSessions int64
}
