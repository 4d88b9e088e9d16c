package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	"github.com/scrilab/artale-auth/internal/license/http/dto"
	licenseUseCase "github.com/scrilab/artale-auth/internal/license/usecase"
)

// CreateLicenseParams are the flags of the create-license command.
type CreateLicenseParams struct {
	// LicenseKey renews the license of an existing customer. Empty generates a new key.
	LicenseKey  string
	Name        string
	Plan        string
	Permissions string // comma separated, e.g. "script_access,config_modify"
	Days        int    // 0 never expires
	Reference   string
	Note        string
	Format      string
}

// RunCreateLicense issues or renews a license through the administrative
// provenance. A generated license key is printed once and never stored.
//
// Requirements: Database must be migrated and accessible.
func RunCreateLicense(
	ctx context.Context,
	useCase licenseUseCase.LicenseUseCase,
	logger *slog.Logger,
	writer io.Writer,
	params CreateLicenseParams,
) error {
	if params.Days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", params.Days)
	}

	licenseKey := strings.TrimSpace(params.LicenseKey)
	if licenseKey == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate license key: %w", err)
		}
		licenseKey = id.String()
	}

	input := licenseDomain.UpsertInput{
		IdentityDigest: licenseDomain.DigestIdentity(licenseKey),
		Name:           params.Name,
		Plan:           params.Plan,
		Permissions:    parsePermissions(params.Permissions),
		Provenance: licenseDomain.Provenance{
			Source:    "admin",
			Reference: params.Reference,
		},
		Note: params.Note,
	}
	if params.Days > 0 {
		expiresAt := time.Now().UTC().AddDate(0, 0, params.Days)
		input.ExpiresAt = &expiresAt
	}

	logger.Info("creating license",
		slog.String("name", params.Name),
		slog.String("plan", params.Plan),
		slog.Int("days", params.Days),
	)

	output, err := useCase.Upsert(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}

	if params.Format == "json" {
		err := writeJSON(writer, map[string]any{
			"license_key": licenseKey,
			"created":     output.Created,
			"license":     dto.MapLicenseToResponse(output.License),
		})
		if err != nil {
			return err
		}
	} else {
		if output.Created {
			_, _ = fmt.Fprintln(writer, "License created successfully")
		} else {
			_, _ = fmt.Fprintln(writer, "License renewed successfully")
		}
		_, _ = fmt.Fprintf(writer, "License Key: %s\n", licenseKey)
		_, _ = fmt.Fprintln(writer, "The license key is not stored and cannot be shown again.")
		_, _ = fmt.Fprintln(writer)
		writeLicenseText(writer, output.License)
	}

	logger.Info("license stored",
		slog.String("identity_digest", output.License.IdentityDigest),
		slog.Bool("created", output.Created),
	)
	return nil
}

// parsePermissions turns a comma separated list into a permission set.
// An empty list grants script access only.
func parsePermissions(list string) map[string]bool {
	permissions := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			permissions[name] = true
		}
	}
	if len(permissions) == 0 {
		permissions[licenseDomain.PermissionScriptAccess] = true
	}
	return permissions
}
