package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/beaconhub/beacon-registry/internal/config"
	"github.com/beaconhub/beacon-registry/internal/db"
	"github.com/beaconhub/beacon-registry/internal/http/api"
	"github.com/beaconhub/beacon-registry/internal/ratelimit"
	"github.com/beaconhub/beacon-registry/internal/security"
	"github.com/beaconhub/beacon-registry/internal/service"
	"github.com/beaconhub/beacon-registry/internal/store"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, _, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	return db.Migrate(conn.WithContext(ctx))
}

// RunServer boots the beacon registry HTTP server and blocks until ctx is
// cancelled or the listener fails. portOverride replaces the configured
// port when positive.
func RunServer(ctx context.Context, cfg config.AppConfig, portOverride int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return err
	}
	if errLogging := config.ConfigureLogging(settings.Logging); errLogging != nil {
		return errLogging
	}
	if portOverride > 0 {
		settings.Server.Port = portOverride
	}

	conn, target, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	log.WithFields(target.fields()).Info("database ready")

	logger := log.StandardLogger()
	limiter := ratelimit.NewManager(settings.LookupRateLimit, nil, nil, logger)
	defer func() {
		if errClose := limiter.Close(); errClose != nil {
			log.WithError(errClose).Warn("close rate limiter")
		}
	}()

	svc := service.New(store.New(conn, logger), security.NewSecretManager(settings.Security.SecretHashCost), logger)

	gin.SetMode(gin.ReleaseMode)
	engine := api.NewEngine(svc, limiter, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", settings.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: settings.Server.ReadTimeout,
		ReadTimeout:       settings.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("beacon registry listening on %s (config=%s)", server.Addr, configPath)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return <-errCh
}

func openDatabase(cfg config.AppConfig) (*gorm.DB, databaseTarget, error) {
	dsn, err := config.LoadDatabaseDSN(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return nil, databaseTarget{}, err
	}
	target, errDescribe := describeDSN(dsn)
	if errDescribe != nil {
		return nil, databaseTarget{}, errDescribe
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, databaseTarget{}, err
	}
	return conn, target, nil
}

func closeDatabase(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.Errorf("sql db close error: %v", errClose)
	}
}
