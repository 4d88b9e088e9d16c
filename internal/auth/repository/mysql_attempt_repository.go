package repository

import (
	"context"
	"database/sql"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/database"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

// MySQLAttemptRepository stores rejected login attempts in MySQL.
// The id is stored as BINARY(16).
type MySQLAttemptRepository struct {
	db *sql.DB
}

// Create inserts a new AuthAttempt.
func (m *MySQLAttemptRepository) Create(ctx context.Context, attempt *authDomain.AuthAttempt) error {
	querier := database.GetTx(ctx, m.db)

	id, err := attempt.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal auth attempt id")
	}

	query := `INSERT INTO auth_attempts (id, identity_digest, client_ip, reason, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		attempt.IdentityDigest,
		attempt.ClientIP,
		attempt.Reason,
		attempt.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create auth attempt")
	}
	return nil
}

// NewMySQLAttemptRepository creates a new MySQL AuthAttempt repository.
func NewMySQLAttemptRepository(db *sql.DB) *MySQLAttemptRepository {
	return &MySQLAttemptRepository{db: db}
}
