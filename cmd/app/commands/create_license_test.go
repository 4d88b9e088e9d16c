package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	licenseMocks "github.com/scrilab/artale-auth/internal/license/http/mocks"
)

func storedLicense(input licenseDomain.UpsertInput) *licenseDomain.License {
	now := time.Now().UTC()
	return &licenseDomain.License{
		IdentityDigest: input.IdentityDigest,
		Active:         true,
		Name:           input.Name,
		Plan:           input.Plan,
		Permissions:    input.Permissions,
		Provenance:     input.Provenance,
		Note:           input.Note,
		ExpiresAt:      input.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestRunCreateLicense(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("generates-key-text-output", func(t *testing.T) {
		mockUseCase := &licenseMocks.MockLicenseUseCase{}
		var captured licenseDomain.UpsertInput
		mockUseCase.On("Upsert", ctx, mock.AnythingOfType("domain.UpsertInput")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(licenseDomain.UpsertInput) }).
			Return(&licenseDomain.UpsertOutput{
				License: storedLicense(licenseDomain.UpsertInput{
					IdentityDigest: licenseDomain.DigestIdentity("generated"),
					Name:           "alice",
					Provenance:     licenseDomain.Provenance{Source: "admin"},
				}),
				Created: true,
			}, nil)

		var out bytes.Buffer
		err := RunCreateLicense(ctx, mockUseCase, logger, &out, CreateLicenseParams{
			Name:   "alice",
			Plan:   "monthly",
			Days:   30,
			Format: "text",
		})

		require.NoError(t, err)
		require.Contains(t, out.String(), "License created successfully")
		require.Contains(t, out.String(), "cannot be shown again")
		require.Equal(t, "admin", captured.Provenance.Source)
		require.Equal(t, map[string]bool{licenseDomain.PermissionScriptAccess: true}, captured.Permissions)
		require.Len(t, captured.IdentityDigest, 64)
		require.NotEqual(t, licenseDomain.DigestIdentity(""), captured.IdentityDigest)
		require.NotNil(t, captured.ExpiresAt)
		require.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), *captured.ExpiresAt, time.Minute)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("renews-given-key-json-output", func(t *testing.T) {
		licenseKey := uuid.NewString()
		renewed := storedLicense(licenseDomain.UpsertInput{
			IdentityDigest: licenseDomain.DigestIdentity(licenseKey),
			Name:           "bob",
			Provenance:     licenseDomain.Provenance{Source: "admin", Reference: "ticket-42"},
		})
		mockUseCase := &licenseMocks.MockLicenseUseCase{}
		mockUseCase.On("Upsert", ctx, mock.MatchedBy(func(input licenseDomain.UpsertInput) bool {
			return input.IdentityDigest == licenseDomain.DigestIdentity(licenseKey) &&
				input.ExpiresAt == nil &&
				input.Permissions[licenseDomain.PermissionConfigModify] &&
				input.Provenance.Reference == "ticket-42"
		})).Return(&licenseDomain.UpsertOutput{License: renewed, Created: false}, nil)

		var out bytes.Buffer
		err := RunCreateLicense(ctx, mockUseCase, logger, &out, CreateLicenseParams{
			LicenseKey:  licenseKey,
			Name:        "bob",
			Permissions: "script_access, config_modify",
			Reference:   "ticket-42",
			Format:      "json",
		})
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, licenseKey, result["license_key"])
		require.Equal(t, false, result["created"])
		require.Equal(t, renewed.IdentityDigest, result["license"].(map[string]any)["identity_digest"])
		mockUseCase.AssertExpectations(t)
	})

	t.Run("negative-days", func(t *testing.T) {
		mockUseCase := &licenseMocks.MockLicenseUseCase{}
		err := RunCreateLicense(ctx, mockUseCase, logger, &bytes.Buffer{}, CreateLicenseParams{Name: "x", Days: -1})

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &licenseMocks.MockLicenseUseCase{}
		mockUseCase.On("Upsert", ctx, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrInvalidInput, "name: cannot be blank"))

		var out bytes.Buffer
		err := RunCreateLicense(ctx, mockUseCase, logger, &out, CreateLicenseParams{Name: " "})

		require.Error(t, err)
		require.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		require.Empty(t, out.String())
	})
}

func TestParsePermissions(t *testing.T) {
	require.Equal(t, map[string]bool{"script_access": true}, parsePermissions(""))
	require.Equal(t, map[string]bool{"script_access": true}, parsePermissions(" , "))
	require.Equal(
		t,
		map[string]bool{"script_access": true, "config_modify": true},
		parsePermissions("script_access,config_modify"),
	)
	require.Equal(t, map[string]bool{"config_modify": true}, parsePermissions("config_modify"))
}
