package app

import (
	"fmt"

	"github.com/scrilab/artale-auth/internal/database"
	licenseHTTP "github.com/scrilab/artale-auth/internal/license/http"
	licenseRepository "github.com/scrilab/artale-auth/internal/license/repository"
	licenseUseCase "github.com/scrilab/artale-auth/internal/license/usecase"
)

// LicenseRepository returns the license store based on the database driver.
func (c *Container) LicenseRepository() (licenseUseCase.LicenseRepository, error) {
	var err error
	c.licenseRepositoryInit.Do(func() {
		c.licenseRepository, err = c.initLicenseRepository()
		if err != nil {
			c.setInitError("licenseRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("licenseRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.licenseRepository, nil
}

// LicenseUseCase returns license administration.
func (c *Container) LicenseUseCase() (licenseUseCase.LicenseUseCase, error) {
	var err error
	c.licenseUseCaseInit.Do(func() {
		c.licenseUseCase, err = c.initLicenseUseCase()
		if err != nil {
			c.setInitError("licenseUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("licenseUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.licenseUseCase, nil
}

// LicenseHandler returns the HTTP handler for the admin license API.
func (c *Container) LicenseHandler() (*licenseHTTP.LicenseHandler, error) {
	var err error
	c.licenseHandlerInit.Do(func() {
		var useCase licenseUseCase.LicenseUseCase
		useCase, err = c.LicenseUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get license use case for license handler: %w", err)
			c.setInitError("licenseHandler", err)
			return
		}
		c.licenseHandler = licenseHTTP.NewLicenseHandler(useCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("licenseHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.licenseHandler, nil
}

// initLicenseRepository creates the license repository for the configured driver.
func (c *Container) initLicenseRepository() (licenseUseCase.LicenseRepository, error) {
	switch c.config.DBDriver {
	case database.DriverPostgres, database.DriverMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for license repository: %w", err)
		}
		if c.config.DBDriver == database.DriverMySQL {
			return licenseRepository.NewMySQLLicenseRepository(db), nil
		}
		return licenseRepository.NewPostgreSQLLicenseRepository(db), nil
	case database.DriverMongoDB:
		db, err := c.MongoDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to get mongodb for license repository: %w", err)
		}
		return licenseRepository.NewMongoDBLicenseRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initLicenseUseCase creates license administration. The authenticator revokes
// sessions on deactivation and the auth cache drops the stale outcome.
func (c *Container) initLicenseUseCase() (licenseUseCase.LicenseUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for license use case: %w", err)
	}

	repository, err := c.LicenseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get license repository for license use case: %w", err)
	}

	revoker, err := c.AuthUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth use case for license use case: %w", err)
	}

	baseUseCase := licenseUseCase.NewLicenseUseCase(txManager, repository, revoker, c.AuthCache(), c.Logger())

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for license use case: %w", err)
		}
		return licenseUseCase.NewLicenseUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
