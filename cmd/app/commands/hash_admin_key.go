package commands

import (
	"fmt"
	"io"
	"strings"

	authService "github.com/scrilab/artale-auth/internal/auth/service"
)

// RunHashAdminKey prints the Argon2id hash to place in ADMIN_API_KEY_HASH.
// With an empty plainKey a new random admin key is generated and printed once.
func RunHashAdminKey(
	adminKeyService authService.AdminKeyService,
	writer io.Writer,
	plainKey, format string,
) error {
	plainKey = strings.TrimSpace(plainKey)
	generated := plainKey == ""

	var hashedKey string
	var err error
	if generated {
		plainKey, hashedKey, err = adminKeyService.GenerateKey()
	} else {
		hashedKey, err = adminKeyService.HashKey(plainKey)
	}
	if err != nil {
		return fmt.Errorf("failed to hash admin key: %w", err)
	}

	if format == "json" {
		result := map[string]any{"admin_key_hash": hashedKey}
		if generated {
			result["admin_key"] = plainKey
		}
		return writeJSON(writer, result)
	}

	if generated {
		_, _ = fmt.Fprintf(writer, "Admin Key: %s\n", plainKey)
		_, _ = fmt.Fprintln(writer, "Store the admin key securely. It cannot be recovered from the hash.")
	}
	_, _ = fmt.Fprintf(writer, "ADMIN_API_KEY_HASH=%s\n", hashedKey)
	return nil
}
