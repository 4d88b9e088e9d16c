package repository

import (
	"context"
	"database/sql"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/database"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

// PostgreSQLAttemptRepository stores rejected login attempts in PostgreSQL.
type PostgreSQLAttemptRepository struct {
	db *sql.DB
}

// Create inserts a new AuthAttempt.
func (p *PostgreSQLAttemptRepository) Create(ctx context.Context, attempt *authDomain.AuthAttempt) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO auth_attempts (id, identity_digest, client_ip, reason, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		attempt.ID,
		attempt.IdentityDigest,
		attempt.ClientIP,
		attempt.Reason,
		attempt.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create auth attempt")
	}
	return nil
}

// NewPostgreSQLAttemptRepository creates a new PostgreSQL AuthAttempt repository.
func NewPostgreSQLAttemptRepository(db *sql.DB) *PostgreSQLAttemptRepository {
	return &PostgreSQLAttemptRepository{db: db}
}
