// Package repository implements session and login attempt persistence.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/database"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

// PostgreSQLSessionRepository implements Session persistence for PostgreSQL.
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// Create inserts a new Session.
func (p *PostgreSQLSessionRepository) Create(ctx context.Context, session *authDomain.Session) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO sessions (token_hash, identity_digest, origin_ip, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		session.TokenHash,
		session.IdentityDigest,
		session.OriginIP,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByTokenHash retrieves a Session by token hash. Returns ErrSessionNotFound if absent
// and ErrCorruptSession if the stored row fails validation.
func (p *PostgreSQLSessionRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*authDomain.Session, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT token_hash, identity_digest, origin_ip, created_at, expires_at
			  FROM sessions WHERE token_hash = $1`

	var session authDomain.Session
	err := querier.QueryRowContext(ctx, query, tokenHash).Scan(
		&session.TokenHash,
		&session.IdentityDigest,
		&session.OriginIP,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes a Session and reports whether it existed.
func (p *PostgreSQLSessionRepository) Delete(ctx context.Context, tokenHash string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete session")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return n > 0, nil
}

// DeleteAllFor removes every Session of an identity digest.
func (p *PostgreSQLSessionRepository) DeleteAllFor(ctx context.Context, identityDigest string) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE identity_digest = $1`, identityDigest)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete sessions")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return n, nil
}

// HasLiveFor reports whether a Session of the identity digest is live at now.
func (p *PostgreSQLSessionRepository) HasLiveFor(
	ctx context.Context,
	identityDigest string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (SELECT 1 FROM sessions WHERE identity_digest = $1 AND expires_at > $2)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, identityDigest, now).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check live session")
	}
	return exists, nil
}

// DeleteExpired removes every Session with expires_at <= now.
func (p *PostgreSQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return n, nil
}

// CountActive returns the number of Sessions live at now.
func (p *PostgreSQLSessionRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE expires_at > $1`, now).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count sessions")
	}
	return count, nil
}

// NewPostgreSQLSessionRepository creates a new PostgreSQL Session repository.
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{db: db}
}
