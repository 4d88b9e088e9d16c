// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	authHTTP "github.com/scrilab/artale-auth/internal/auth/http"
	authService "github.com/scrilab/artale-auth/internal/auth/service"
	authUseCase "github.com/scrilab/artale-auth/internal/auth/usecase"
	"github.com/scrilab/artale-auth/internal/authcache"
	"github.com/scrilab/artale-auth/internal/config"
	"github.com/scrilab/artale-auth/internal/database"
	"github.com/scrilab/artale-auth/internal/http"
	licenseHTTP "github.com/scrilab/artale-auth/internal/license/http"
	licenseUseCase "github.com/scrilab/artale-auth/internal/license/usecase"
	"github.com/scrilab/artale-auth/internal/metrics"
	"github.com/scrilab/artale-auth/internal/ratelimit"
	"github.com/scrilab/artale-auth/internal/worker"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Lifetime of background goroutines owned by components; cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger        *slog.Logger
	db            *sql.DB
	mongoClient   *mongo.Client
	mongoDatabase *mongo.Database
	redisClient   *redis.Client

	// Managers
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Services
	tokenService    authService.TokenService
	adminKeyService authService.AdminKeyService

	// Repositories
	licenseRepository licenseUseCase.LicenseRepository
	sessionRepository authUseCase.SessionRepository
	attemptRepository authUseCase.AttemptRepository

	// In-process state
	authCache  *authcache.Cache
	ipGuard    *ratelimit.IPGuard
	workerPool *worker.Pool

	// Use Cases
	authUseCase    authUseCase.AuthUseCase
	licenseUseCase licenseUseCase.LicenseUseCase

	// Handlers
	authHandler    *authHTTP.AuthHandler
	licenseHandler *licenseHTTP.LicenseHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	mongoInit             sync.Once
	redisInit             sync.Once
	txManagerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	tokenServiceInit      sync.Once
	adminKeyServiceInit   sync.Once
	licenseRepositoryInit sync.Once
	sessionRepositoryInit sync.Once
	attemptRepositoryInit sync.Once
	authCacheInit         sync.Once
	ipGuardInit           sync.Once
	workerPoolInit        sync.Once
	authUseCaseInit       sync.Once
	licenseUseCaseInit    sync.Once
	authHandlerInit       sync.Once
	licenseHandlerInit    sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the SQL connection. Only valid for the postgres and mysql drivers.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.setInitError("db", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("db"); storedErr != nil {
		return nil, storedErr
	}
	return c.db, nil
}

// MongoDatabase returns the MongoDB database. Only valid for the mongodb driver.
func (c *Container) MongoDatabase() (*mongo.Database, error) {
	var err error
	c.mongoInit.Do(func() {
		c.mongoClient, c.mongoDatabase, err = c.initMongo()
		if err != nil {
			c.setInitError("mongo", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("mongo"); storedErr != nil {
		return nil, storedErr
	}
	return c.mongoDatabase, nil
}

// RedisClient returns the redis client used by the redis session store.
func (c *Container) RedisClient() (*redis.Client, error) {
	var err error
	c.redisInit.Do(func() {
		c.redisClient, err = database.ConnectRedis(c.ctx, c.config.RedisURL)
		if err != nil {
			c.setInitError("redis", fmt.Errorf("failed to connect to redis: %w", err))
		}
	})
	if storedErr := c.initError("redis"); storedErr != nil {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// TxManager returns the transaction manager. MongoDB runs without transactions;
// its single-document writes are atomic.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.setInitError("txManager", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("txManager"); storedErr != nil {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("metricsProvider", fmt.Errorf("failed to create metrics provider: %w", err))
		}
	})
	if storedErr := c.initError("metricsProvider"); storedErr != nil {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business instruments, or a no-op recorder when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.setInitError("businessMetrics", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("businessMetrics"); storedErr != nil {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// WorkerPool returns the background task pool.
func (c *Container) WorkerPool() (*worker.Pool, error) {
	var err error
	c.workerPoolInit.Do(func() {
		c.workerPool, err = c.initWorkerPool()
		if err != nil {
			c.setInitError("workerPool", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("workerPool"); storedErr != nil {
		return nil, storedErr
	}
	return c.workerPool, nil
}

// HTTPServer returns the public HTTP server with every route mounted.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.setInitError("httpServer", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("httpServer"); storedErr != nil {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.setInitError("metricsServer", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("metricsServer"); storedErr != nil {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Drain background tasks before closing the stores they write to.
	if c.workerPool != nil {
		if err := c.workerPool.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("worker pool shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("mongodb disconnect: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

func (c *Container) setInitError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

func (c *Container) initError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	if !database.IsSQLDriver(c.config.DBDriver) {
		return nil, fmt.Errorf("database driver %q is not a sql driver", c.config.DBDriver)
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initMongo connects to MongoDB using the shared connection string.
func (c *Container) initMongo() (*mongo.Client, *mongo.Database, error) {
	if c.config.DBDriver != database.DriverMongoDB {
		return nil, nil, fmt.Errorf("database driver %q is not mongodb", c.config.DBDriver)
	}

	client, db, err := database.ConnectMongo(c.ctx, database.MongoConfig{
		URI:            c.config.DBConnectionString,
		Database:       c.config.MongoDatabase,
		MaxPoolSize:    uint64(max(c.config.DBMaxOpenConnections, 0)), //nolint:gosec // clamped
		ConnectTimeout: c.config.AuthRequestTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	return client, db, nil
}

// initTxManager creates the transaction manager for the configured driver.
func (c *Container) initTxManager() (database.TxManager, error) {
	if c.config.DBDriver == database.DriverMongoDB {
		return database.NewNoopTxManager(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initWorkerPool starts the background task pool.
func (c *Container) initWorkerPool() (*worker.Pool, error) {
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for worker pool: %w", err)
	}

	return worker.NewPool(worker.Config{
		Workers:     c.config.WorkerCount,
		QueueSize:   c.config.WorkerQueueSize,
		TaskTimeout: c.config.WorkerTaskTimeout,
	}, c.Logger(), businessMetrics), nil
}

// ReadinessChecks pings every store the configured drivers use.
func (c *Container) ReadinessChecks() ([]http.ReadinessCheck, error) {
	var checks []http.ReadinessCheck

	if database.IsSQLDriver(c.config.DBDriver) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		checks = append(checks, http.ReadinessCheck{Name: "database", Check: db.PingContext})
	} else {
		if _, err := c.MongoDatabase(); err != nil {
			return nil, err
		}
		client := c.mongoClient
		checks = append(checks, http.ReadinessCheck{
			Name: "database",
			Check: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
		})
	}

	if c.sessionDriver() == database.DriverRedis {
		client, err := c.RedisClient()
		if err != nil {
			return nil, err
		}
		checks = append(checks, http.ReadinessCheck{
			Name: "session_store",
			Check: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		})
	}

	return checks, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	checks, err := c.ReadinessChecks()
	if err != nil {
		return nil, fmt.Errorf("failed to build readiness checks for http server: %w", err)
	}

	authHandler, err := c.AuthHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth handler for http server: %w", err)
	}

	licenseHandler, err := c.LicenseHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get license handler for http server: %w", err)
	}

	adminKeyService, err := c.AdminKeyService()
	if err != nil {
		return nil, fmt.Errorf("failed to get admin key service for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	if metricsProvider != nil {
		if err := c.registerGauges(metricsProvider); err != nil {
			return nil, err
		}
	}

	server := http.NewServer(checks, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(c.ctx, c.config, http.RouterDeps{
		AuthHandler:     authHandler,
		LicenseHandler:  licenseHandler,
		Guard:           c.IPGuard(),
		AdminVerifier:   adminKeyService,
		MetricsProvider: metricsProvider,
	})

	return server, nil
}

// registerGauges exposes the IP guard and auth cache sizes.
func (c *Container) registerGauges(provider *metrics.Provider) error {
	guard := c.IPGuard()
	cache := c.AuthCache()
	ctx := c.ctx

	err := metrics.RegisterGauges(provider.MeterProvider(), c.config.MetricsNamespace, func() metrics.GaugeSnapshot {
		stats := guard.Stats(ctx)
		return metrics.GaugeSnapshot{
			BlockedIPs:        stats.BlockedIPs,
			TrackedIPs:        stats.TrackedIPs,
			CacheSize:         cache.Len(),
			MemoryGuardActive: stats.MemoryGuardActive,
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register gauges: %w", err)
	}
	return nil
}

// initMetricsServer creates the Prometheus scrape server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
