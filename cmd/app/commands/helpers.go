// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/scrilab/artale-auth/internal/app"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(writer io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(writer, string(jsonBytes))
	return err
}

// resolveDigest returns the identity digest addressed by either a plain
// license key or an already computed digest. Exactly one must be set.
func resolveDigest(licenseKey, digest string) (string, error) {
	licenseKey = strings.TrimSpace(licenseKey)
	digest = strings.ToLower(strings.TrimSpace(digest))

	switch {
	case licenseKey != "" && digest != "":
		return "", fmt.Errorf("use either --key or --digest, not both")
	case licenseKey != "":
		return licenseDomain.DigestIdentity(licenseKey), nil
	case digest != "":
		return digest, nil
	default:
		return "", fmt.Errorf("a license --key or --digest is required")
	}
}

// writeLicenseText prints the administrative view of a license.
func writeLicenseText(writer io.Writer, license *licenseDomain.License) {
	status := "active"
	if !license.Active {
		status = "inactive"
	}
	expires := "never"
	if license.ExpiresAt != nil {
		expires = license.ExpiresAt.UTC().Format(time.RFC3339)
	}

	_, _ = fmt.Fprintf(writer, "Digest:      %s\n", license.IdentityDigest)
	_, _ = fmt.Fprintf(writer, "Name:        %s\n", license.Name)
	_, _ = fmt.Fprintf(writer, "Plan:        %s\n", license.Plan)
	_, _ = fmt.Fprintf(writer, "Status:      %s\n", status)
	_, _ = fmt.Fprintf(writer, "Expires:     %s\n", expires)
	_, _ = fmt.Fprintf(writer, "Source:      %s\n", license.Provenance.Source)
	if license.DeactivationReason != "" {
		_, _ = fmt.Fprintf(writer, "Reason:      %s\n", license.DeactivationReason)
	}
}
