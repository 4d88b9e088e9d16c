package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	"github.com/scrilab/artale-auth/internal/license/http/dto"
	licenseUseCase "github.com/scrilab/artale-auth/internal/license/usecase"
)

// RunDeactivateLicense deactivates a license after a refund or chargeback.
// Every session of the identity is revoked before the command returns.
func RunDeactivateLicense(
	ctx context.Context,
	useCase licenseUseCase.LicenseUseCase,
	logger *slog.Logger,
	writer io.Writer,
	licenseKey, digest, reason, format string,
) error {
	identityDigest, err := resolveDigest(licenseKey, digest)
	if err != nil {
		return err
	}

	logger.Info("deactivating license", slog.String("identity_digest", identityDigest))

	output, err := useCase.Deactivate(ctx, licenseDomain.DeactivateInput{
		IdentityDigest: identityDigest,
		Reason:         reason,
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate license: %w", err)
	}

	if format == "json" {
		err := writeJSON(writer, dto.DeactivateLicenseResponse{
			License:         dto.MapLicenseToResponse(output.License),
			RevokedSessions: output.RevokedSessions,
		})
		if err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "License deactivated, %d session(s) revoked\n\n", output.RevokedSessions)
		writeLicenseText(writer, output.License)
	}

	logger.Info("license deactivated",
		slog.String("identity_digest", identityDigest),
		slog.Int64("revoked_sessions", output.RevokedSessions),
	)
	return nil
}

// RunReactivateLicense marks a license active again.
func RunReactivateLicense(
	ctx context.Context,
	useCase licenseUseCase.LicenseUseCase,
	logger *slog.Logger,
	writer io.Writer,
	licenseKey, digest, format string,
) error {
	identityDigest, err := resolveDigest(licenseKey, digest)
	if err != nil {
		return err
	}

	logger.Info("reactivating license", slog.String("identity_digest", identityDigest))

	license, err := useCase.Reactivate(ctx, identityDigest)
	if err != nil {
		return fmt.Errorf("failed to reactivate license: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, dto.MapLicenseToResponse(license)); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprint(writer, "License reactivated\n\n")
		writeLicenseText(writer, license)
	}

	logger.Info("license reactivated", slog.String("identity_digest", identityDigest))
	return nil
}

// RunShowLicense prints one license.
func RunShowLicense(
	ctx context.Context,
	useCase licenseUseCase.LicenseUseCase,
	writer io.Writer,
	licenseKey, digest, format string,
) error {
	identityDigest, err := resolveDigest(licenseKey, digest)
	if err != nil {
		return err
	}

	license, err := useCase.Get(ctx, identityDigest)
	if err != nil {
		return fmt.Errorf("failed to get license: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, dto.MapLicenseToResponse(license))
	}
	writeLicenseText(writer, license)
	return nil
}

// RunListLicenses prints one page of licenses, newest first.
func RunListLicenses(
	ctx context.Context,
	useCase licenseUseCase.LicenseUseCase,
	writer io.Writer,
	offset, limit int,
	format string,
) error {
	if offset < 0 {
		return fmt.Errorf("offset must be a positive number, got: %d", offset)
	}
	if limit < 1 || limit > 100 {
		return fmt.Errorf("limit must be between 1 and 100, got: %d", limit)
	}

	licenses, err := useCase.List(ctx, licenseDomain.ListFilter{Offset: offset, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list licenses: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, dto.MapLicensesToListResponse(licenses))
	}

	if len(licenses) == 0 {
		_, _ = fmt.Fprintln(writer, "No licenses found")
		return nil
	}
	for i, license := range licenses {
		if i > 0 {
			_, _ = fmt.Fprintln(writer)
		}
		writeLicenseText(writer, license)
	}
	return nil
}
