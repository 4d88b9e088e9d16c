package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/scrilab/artale-auth/internal/database"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// MySQLLicenseRepository implements License persistence for MySQL.
//
// MySQL reports zero affected rows for an UPDATE that changes nothing, so
// callers always move updated_at forward.
type MySQLLicenseRepository struct {
	db *sql.DB
}

// Create inserts a new License. Returns ErrConflict if the digest already exists.
func (m *MySQLLicenseRepository) Create(ctx context.Context, license *licenseDomain.License) error {
	querier := database.GetTx(ctx, m.db)

	values, err := licenseValues(license, true)
	if err != nil {
		return err
	}

	query := `INSERT INTO licenses (` + licenseColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := querier.ExecContext(ctx, query, values...); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return apperrors.ErrConflict
		}
		return apperrors.Wrap(err, "failed to create license")
	}
	return nil
}

// Update replaces every mutable column of an existing License.
func (m *MySQLLicenseRepository) Update(ctx context.Context, license *licenseDomain.License) error {
	querier := database.GetTx(ctx, m.db)

	values, err := licenseValues(license, true)
	if err != nil {
		return err
	}
	// The digest moves from first to last for the WHERE clause.
	args := append(values[1:], values[0])

	query := `UPDATE licenses SET active = ?, name = ?, plan = ?, permissions = ?, login_count = ?,
			  last_login_at = ?, last_login_ip = ?, provenance_source = ?, provenance_reference = ?,
			  note = ?, expires_at = ?, deactivated_at = ?, deactivation_reason = ?,
			  created_at = ?, updated_at = ?
			  WHERE identity_digest = ?`

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update license")
	}
	return requireAffected(result)
}

// Get retrieves a License by identity digest.
func (m *MySQLLicenseRepository) Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	return m.get(ctx, identityDigest, "")
}

// GetForUpdate retrieves a License and locks its row until the transaction ends.
func (m *MySQLLicenseRepository) GetForUpdate(
	ctx context.Context,
	identityDigest string,
) (*licenseDomain.License, error) {
	return m.get(ctx, identityDigest, " FOR UPDATE")
}

func (m *MySQLLicenseRepository) get(
	ctx context.Context,
	identityDigest, suffix string,
) (*licenseDomain.License, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE identity_digest = ?` + suffix

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
func (m *MySQLLicenseRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*licenseDomain.License, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + licenseColumns + ` FROM licenses
			  ORDER BY created_at DESC, identity_digest LIMIT ? OFFSET ?`

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
func (m *MySQLLicenseRepository) RecordLogin(
	ctx context.Context,
	identityDigest, clientIP string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE licenses SET login_count = login_count + 1, last_login_at = ?, last_login_ip = ?
			  WHERE identity_digest = ?`

	result, err := querier.ExecContext(ctx, query, at.UTC(), nullString(clientIP), identityDigest)
	if err != nil {
		return apperrors.Wrap(err, "failed to record login")
	}
	return requireAffected(result)
}

// NewMySQLLicenseRepository creates a new MySQL License repository.
func NewMySQLLicenseRepository(db *sql.DB) *MySQLLicenseRepository {
	return &MySQLLicenseRepository{db: db}
}
