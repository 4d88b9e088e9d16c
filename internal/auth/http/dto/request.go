// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	customValidation "github.com/scrilab/artale-auth/internal/validation"
)

// LoginRequest is the body of POST /auth/login.
// ForceLogin is a pointer so an absent field falls back to the configured default.
type LoginRequest struct {
	UUID       string `json:"uuid"`
	ForceLogin *bool  `json:"force_login"`
}

// Validate checks that a license key was supplied. Its content is not inspected
// so an unknown key and a malformed one are rejected alike.
func (r *LoginRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.UUID,
			validation.Required,
			customValidation.NotBlank,
		),
	)
	if err != nil {
		return authDomain.ErrMissingIdentity
	}
	return nil
}

// LogoutRequest is the body of POST /auth/logout. A missing token is accepted.
type LogoutRequest struct {
	SessionToken string `json:"session_token"`
}

// ValidateRequest is the body of POST /auth/validate.
type ValidateRequest struct {
	SessionToken string `json:"session_token"`
}

// Validate checks the token shape before any store is touched.
func (r *ValidateRequest) Validate() error {
	return authDomain.ValidateTokenShape(r.SessionToken)
}
