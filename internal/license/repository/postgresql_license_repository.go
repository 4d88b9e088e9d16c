package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/scrilab/artale-auth/internal/database"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// PostgreSQLLicenseRepository implements License persistence for PostgreSQL.
type PostgreSQLLicenseRepository struct {
	db *sql.DB
}

// Create inserts a new License. Returns ErrConflict if the digest already exists.
func (p *PostgreSQLLicenseRepository) Create(ctx context.Context, license *licenseDomain.License) error {
	querier := database.GetTx(ctx, p.db)

	values, err := licenseValues(license, false)
	if err != nil {
		return err
	}

	query := `INSERT INTO licenses (` + licenseColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	if _, err := querier.ExecContext(ctx, query, values...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return apperrors.Wrap(err, "failed to create license")
	}
	return nil
}

// Update replaces every mutable column of an existing License.
func (p *PostgreSQLLicenseRepository) Update(ctx context.Context, license *licenseDomain.License) error {
	querier := database.GetTx(ctx, p.db)

	values, err := licenseValues(license, false)
	if err != nil {
		return err
	}

	query := `UPDATE licenses SET active = $2, name = $3, plan = $4, permissions = $5, login_count = $6,
			  last_login_at = $7, last_login_ip = $8, provenance_source = $9, provenance_reference = $10,
			  note = $11, expires_at = $12, deactivated_at = $13, deactivation_reason = $14,
			  created_at = $15, updated_at = $16
			  WHERE identity_digest = $1`

	result, err := querier.ExecContext(ctx, query, values...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update license")
	}
	return requireAffected(result)
}

// Get retrieves a License by identity digest.
func (p *PostgreSQLLicenseRepository) Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	return p.get(ctx, identityDigest, "")
}

// GetForUpdate retrieves a License and locks its row until the transaction ends.
func (p *PostgreSQLLicenseRepository) GetForUpdate(
	ctx context.Context,
	identityDigest string,
) (*licenseDomain.License, error) {
	return p.get(ctx, identityDigest, " FOR UPDATE")
}

func (p *PostgreSQLLicenseRepository) get(
	ctx context.Context,
	identityDigest, suffix string,
) (*licenseDomain.License, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE identity_digest = $1` + suffix

	license, err := scanLicense(querier.QueryRowContext(ctx, query, identityDigest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, licenseDomain.ErrLicenseNotFound
		}
		if errors.Is(err, licenseDomain.ErrCorruptRecord) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to get license")
	}
	return license, nil
}

// List returns licenses ordered by creation time descending.
func (p *PostgreSQLLicenseRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*licenseDomain.License, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + licenseColumns + ` FROM licenses
			  ORDER BY created_at DESC, identity_digest LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list licenses")
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectLicenses(rows)
}

// RecordLogin increments the login counter and stores the last login time and IP.
func (p *PostgreSQLLicenseRepository) RecordLogin(
	ctx context.Context,
	identityDigest, clientIP string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE licenses SET login_count = login_count + 1, last_login_at = $2, last_login_ip = $3
			  WHERE identity_digest = $1`

	result, err := querier.ExecContext(ctx, query, identityDigest, at, nullString(clientIP))
	if err != nil {
		return apperrors.Wrap(err, "failed to record login")
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if n == 0 {
		return licenseDomain.ErrLicenseNotFound
	}
	return nil
}

func collectLicenses(rows *sql.Rows) ([]*licenseDomain.License, error) {
	licenses := make([]*licenseDomain.License, 0)
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			if errors.Is(err, licenseDomain.ErrCorruptRecord) {
				return nil, err
			}
			return nil, apperrors.Wrap(err, "failed to scan license")
		}
		licenses = append(licenses, license)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate licenses")
	}
	return licenses, nil
}

// NewPostgreSQLLicenseRepository creates a new PostgreSQL License repository.
func NewPostgreSQLLicenseRepository(db *sql.DB) *PostgreSQLLicenseRepository {
	return &PostgreSQLLicenseRepository{db: db}
}
