package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrilab/artale-auth/internal/database"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

var licenseColumnNames = []string{
	"identity_digest", "active", "name", "plan", "permissions", "login_count", "last_login_at",
	"last_login_ip", "provenance_source", "provenance_reference", "note", "expires_at", "deactivated_at",
	"deactivation_reason", "created_at", "updated_at",
}

func newTestLicense(now time.Time) *licenseDomain.License {
	return &licenseDomain.License{
		IdentityDigest: licenseDomain.DigestIdentity("license-key"),
		Active:         true,
		Name:           "Player",
		Plan:           "monthly",
		Permissions:    map[string]bool{licenseDomain.PermissionScriptAccess: true},
		Provenance:     licenseDomain.Provenance{Source: "gumroad", Reference: "sale-1"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func licenseRow(l *licenseDomain.License) []driver.Value {
	var deactivatedAt any
	if l.DeactivatedAt != nil {
		deactivatedAt = *l.DeactivatedAt
	}
	return []driver.Value{
		l.IdentityDigest, l.Active, l.Name, l.Plan, []byte(`{"script_access":true}`), l.LoginCount, nil,
		nil, l.Provenance.Source, l.Provenance.Reference, l.Note, nil, deactivatedAt,
		nil, l.CreatedAt, l.UpdatedAt,
	}
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestNewPostgreSQLLicenseRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLLicenseRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLLicenseRepository{}, repo)
}

func TestPostgreSQLLicenseRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	license := newTestLicense(time.Now().UTC())
	repo := NewPostgreSQLLicenseRepository(db)

	t.Run("Success", func(t *testing.T) {
		args := anyArgs(16)
		args[0] = license.IdentityDigest
		args[4] = `{"script_access":true}`
		mock.ExpectExec("INSERT INTO licenses").
			WithArgs(args...).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, license))
	})

	t.Run("Error_Conflict", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO licenses").WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, license)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Error_Wrapped", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO licenses").WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, license)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create license")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLLicenseRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	license := newTestLicense(time.Now().UTC())
	repo := NewPostgreSQLLicenseRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM licenses WHERE identity_digest = \\$1$").
			WithArgs(license.IdentityDigest).
			WillReturnRows(sqlmock.NewRows(licenseColumnNames).AddRow(licenseRow(license)...))

		got, err := repo.Get(ctx, license.IdentityDigest)
		require.NoError(t, err)
		assert.Equal(t, license.IdentityDigest, got.IdentityDigest)
		assert.True(t, got.Permissions[licenseDomain.PermissionScriptAccess])
		assert.Nil(t, got.ExpiresAt)
		assert.Nil(t, got.LastLoginAt)
		assert.Empty(t, got.LastLoginIP)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM licenses").
			WithArgs(license.IdentityDigest).
			WillReturnRows(sqlmock.NewRows(licenseColumnNames))

		_, err := repo.Get(ctx, license.IdentityDigest)
		assert.ErrorIs(t, err, licenseDomain.ErrLicenseNotFound)
	})

	t.Run("Error_CorruptRecord", func(t *testing.T) {
		corrupt := newTestLicense(time.Now().UTC())
		corrupt.Active = false
		mock.ExpectQuery("SELECT (.+) FROM licenses").
			WillReturnRows(sqlmock.NewRows(licenseColumnNames).AddRow(licenseRow(corrupt)...))

		_, err := repo.Get(ctx, license.IdentityDigest)
		assert.ErrorIs(t, err, licenseDomain.ErrCorruptRecord)
	})

	t.Run("Error_CorruptPermissions", func(t *testing.T) {
		row := licenseRow(license)
		row[4] = []byte(`not json`)
		mock.ExpectQuery("SELECT (.+) FROM licenses").
			WillReturnRows(sqlmock.NewRows(licenseColumnNames).AddRow(row...))

		_, err := repo.Get(ctx, license.IdentityDigest)
		assert.ErrorIs(t, err, licenseDomain.ErrCorruptRecord)
	})

	t.Run("Success_GetForUpdateLocksRow", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM licenses WHERE identity_digest = \\$1 FOR UPDATE").
			WithArgs(license.IdentityDigest).
			WillReturnRows(sqlmock.NewRows(licenseColumnNames).AddRow(licenseRow(license)...))
		mock.ExpectCommit()

		txManager := database.NewTxManager(db)
		err := txManager.WithTx(ctx, func(ctx context.Context) error {
			_, err := repo.GetForUpdate(ctx, license.IdentityDigest)
			return err
		})
		require.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLLicenseRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	license := newTestLicense(time.Now().UTC())
	repo := NewPostgreSQLLicenseRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE licenses SET active").
			WithArgs(anyArgs(16)...).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, license))
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE licenses SET active").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, license)
		assert.ErrorIs(t, err, licenseDomain.ErrLicenseNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLLicenseRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()
	first := newTestLicense(now)
	second := newTestLicense(now.Add(-time.Hour))
	second.IdentityDigest = licenseDomain.DigestIdentity("other-key")
	repo := NewPostgreSQLLicenseRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM licenses\\s+ORDER BY created_at DESC").
		WithArgs(10, 5).
		WillReturnRows(sqlmock.NewRows(licenseColumnNames).
			AddRow(licenseRow(first)...).
			AddRow(licenseRow(second)...))

	licenses, err := repo.List(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, licenses, 2)
	assert.Equal(t, first.IdentityDigest, licenses[0].IdentityDigest)
	assert.Equal(t, second.IdentityDigest, licenses[1].IdentityDigest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLLicenseRepository_RecordLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	at := time.Now().UTC()
	digest := licenseDomain.DigestIdentity("license-key")
	repo := NewPostgreSQLLicenseRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE licenses SET login_count = login_count \\+ 1").
			WithArgs(digest, at, "10.0.0.1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RecordLogin(ctx, digest, "10.0.0.1", at))
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE licenses SET login_count").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RecordLogin(ctx, digest, "10.0.0.1", at)
		assert.ErrorIs(t, err, licenseDomain.ErrLicenseNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
