package app

import (
	"fmt"
	"time"

	authHTTP "github.com/scrilab/artale-auth/internal/auth/http"
	authRepository "github.com/scrilab/artale-auth/internal/auth/repository"
	authService "github.com/scrilab/artale-auth/internal/auth/service"
	authUseCase "github.com/scrilab/artale-auth/internal/auth/usecase"
	"github.com/scrilab/artale-auth/internal/authcache"
	"github.com/scrilab/artale-auth/internal/database"
	"github.com/scrilab/artale-auth/internal/ratelimit"
)

// memoryProbeTTL is how long a host memory reading is reused by the IP guard.
const memoryProbeTTL = 5 * time.Second

// TokenService returns the session token generator.
func (c *Container) TokenService() authService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = authService.NewTokenService()
	})
	return c.tokenService
}

// AdminKeyService returns the Argon2id admin key hasher.
func (c *Container) AdminKeyService() (authService.AdminKeyService, error) {
	var err error
	c.adminKeyServiceInit.Do(func() {
		c.adminKeyService, err = authService.NewAdminKeyService()
		if err != nil {
			c.setInitError("adminKeyService", fmt.Errorf("failed to create admin key service: %w", err))
		}
	})
	if storedErr := c.initError("adminKeyService"); storedErr != nil {
		return nil, storedErr
	}
	return c.adminKeyService, nil
}

// AuthCache returns the login outcome cache.
func (c *Container) AuthCache() *authcache.Cache {
	c.authCacheInit.Do(func() {
		c.authCache = authcache.New(authcache.Config{
			Size:       c.config.AuthCacheSize,
			SuccessTTL: c.config.AuthCacheTTL,
			FailureTTL: c.config.AuthCacheFailureTTL,
		})
	})
	return c.authCache
}

// IPGuard returns the per-IP sliding window guard.
func (c *Container) IPGuard() *ratelimit.IPGuard {
	c.ipGuardInit.Do(func() {
		var probe ratelimit.MemoryProbe
		if c.config.MemoryPressureThreshold > 0 {
			probe = ratelimit.NewSystemMemoryProbe(memoryProbeTTL)
		}
		c.ipGuard = ratelimit.NewIPGuard(ratelimit.Config{
			Enabled:         c.config.RateLimitEnabled,
			BlockDuration:   c.config.RateLimitBlockDuration,
			CleanupInterval: c.config.RateLimitCleanupInterval,
			MemoryThreshold: c.config.MemoryPressureThreshold,
		}, probe, c.Logger())
	})
	return c.ipGuard
}

// SessionRepository returns the session store selected by SESSION_STORE_DRIVER.
func (c *Container) SessionRepository() (authUseCase.SessionRepository, error) {
	var err error
	c.sessionRepositoryInit.Do(func() {
		c.sessionRepository, err = c.initSessionRepository()
		if err != nil {
			c.setInitError("sessionRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("sessionRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.sessionRepository, nil
}

// AttemptRepository returns the rejected-login audit store.
func (c *Container) AttemptRepository() (authUseCase.AttemptRepository, error) {
	var err error
	c.attemptRepositoryInit.Do(func() {
		c.attemptRepository, err = c.initAttemptRepository()
		if err != nil {
			c.setInitError("attemptRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("attemptRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.attemptRepository, nil
}

// AuthUseCase returns the authenticator.
func (c *Container) AuthUseCase() (authUseCase.AuthUseCase, error) {
	var err error
	c.authUseCaseInit.Do(func() {
		c.authUseCase, err = c.initAuthUseCase()
		if err != nil {
			c.setInitError("authUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("authUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.authUseCase, nil
}

// AuthHandler returns the HTTP handler for login, logout and validation.
func (c *Container) AuthHandler() (*authHTTP.AuthHandler, error) {
	var err error
	c.authHandlerInit.Do(func() {
		c.authHandler, err = c.initAuthHandler()
		if err != nil {
			c.setInitError("authHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("authHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.authHandler, nil
}

func (c *Container) sessionDriver() string {
	if c.config.SessionStoreDriver == "" {
		return c.config.DBDriver
	}
	return c.config.SessionStoreDriver
}

// initSessionRepository creates the session repository. A database-backed
// session store must use the same driver as the license store.
func (c *Container) initSessionRepository() (authUseCase.SessionRepository, error) {
	driver := c.sessionDriver()

	if driver == database.DriverRedis {
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for session repository: %w", err)
		}
		return authRepository.NewRedisSessionRepository(client), nil
	}

	if driver != c.config.DBDriver {
		return nil, fmt.Errorf(
			"unsupported session store driver %q with database driver %q",
			driver,
			c.config.DBDriver,
		)
	}

	switch driver {
	case database.DriverPostgres, database.DriverMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for session repository: %w", err)
		}
		if driver == database.DriverMySQL {
			return authRepository.NewMySQLSessionRepository(db), nil
		}
		return authRepository.NewPostgreSQLSessionRepository(db), nil
	case database.DriverMongoDB:
		db, err := c.MongoDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to get mongodb for session repository: %w", err)
		}
		return authRepository.NewMongoDBSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", driver)
	}
}

// initAttemptRepository creates the audit repository based on the database driver.
func (c *Container) initAttemptRepository() (authUseCase.AttemptRepository, error) {
	switch c.config.DBDriver {
	case database.DriverPostgres, database.DriverMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for attempt repository: %w", err)
		}
		if c.config.DBDriver == database.DriverMySQL {
			return authRepository.NewMySQLAttemptRepository(db), nil
		}
		return authRepository.NewPostgreSQLAttemptRepository(db), nil
	case database.DriverMongoDB:
		db, err := c.MongoDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to get mongodb for attempt repository: %w", err)
		}
		return authRepository.NewMongoDBAttemptRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuthUseCase creates the authenticator with all its dependencies.
func (c *Container) initAuthUseCase() (authUseCase.AuthUseCase, error) {
	sessionRepository, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for auth use case: %w", err)
	}

	licenseRepository, err := c.LicenseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get license repository for auth use case: %w", err)
	}

	attemptRepository, err := c.AttemptRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt repository for auth use case: %w", err)
	}

	workerPool, err := c.WorkerPool()
	if err != nil {
		return nil, fmt.Errorf("failed to get worker pool for auth use case: %w", err)
	}

	baseUseCase := authUseCase.NewAuthUseCase(
		authUseCase.Config{
			SessionTTL:     c.config.SessionTTL,
			RequestTimeout: c.config.AuthRequestTimeout,
		},
		sessionRepository,
		licenseRepository,
		attemptRepository,
		c.TokenService(),
		c.AuthCache(),
		c.IPGuard(),
		workerPool,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for auth use case: %w", err)
		}
		return authUseCase.NewAuthUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAuthHandler creates the auth HTTP handler with all its dependencies.
func (c *Container) initAuthHandler() (*authHTTP.AuthHandler, error) {
	useCase, err := c.AuthUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth use case for auth handler: %w", err)
	}

	return authHTTP.NewAuthHandler(useCase, c.config.ForceLoginDefault, c.Logger()), nil
}
