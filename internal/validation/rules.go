// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

var (
	// digestRegex matches a lowercase hex SHA-256 digest
	digestRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)
	// tokenRegex matches the unpadded base64url alphabet
	tokenRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// IdentityDigest validates a hex encoded SHA-256 identity digest.
var IdentityDigest = validation.NewStringRuleWithError(
	func(s string) bool {
		return digestRegex.MatchString(s)
	},
	validation.NewError("validation_identity_digest", "must be a 64 character lowercase hex digest"),
)

// TokenAlphabet validates that a string only uses the base64url alphabet.
var TokenAlphabet = validation.NewStringRuleWithError(
	func(s string) bool {
		return tokenRegex.MatchString(s)
	},
	validation.NewError("validation_token_alphabet", "must be a base64url encoded value"),
)
