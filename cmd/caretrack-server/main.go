package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"caretrack/internal/auth"
	"caretrack/internal/config"
	"caretrack/internal/service/scheduling"
	"caretrack/internal/store/postgres"
	transport "caretrack/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "caretrack-server").
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	log = log.Level(parseLogLevel(cfg.LogLevel))
	log.Info().Str("http_addr", cfg.HTTPAddr()).Str("log_level", cfg.LogLevel).Msg("starting")

	dbLog := databaseLogContext(log, cfg.DatabaseURL)
	dbLog.Info().Msg("connecting to database")
	db, err := postgres.Open(context.Background(), cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		dbLog.Fatal().Err(err).Msg("database connection failed")
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}()

	schedRepo := postgres.NewSchedulingRepo(db)
	identityRepo := postgres.NewIdentityRepo(db)

	issuer := auth.NewTokenIssuer([]byte(cfg.AuthSecret), cfg.TokenTTL)
	authSvc := auth.NewService(issuer, identityRepo)
	availabilitySvc := scheduling.NewAvailabilityService(schedRepo)
	appointmentSvc := scheduling.NewAppointmentService(schedRepo, identityRepo)

	router := transport.NewRouter(
		log,
		transport.ServerConfig{
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.HTTPRequestTimeout,
		},
		auth.Middleware(issuer, identityRepo),
		authSvc,
		availabilitySvc,
		appointmentSvc,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Start(cfg.HTTPAddr())
	}()

	log.Info().Str("http_addr", cfg.HTTPAddr()).Msg("http server started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := router.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http graceful shutdown failed; closing")
			_ = router.Close()
		} else {
			log.Info().Msg("http server stopped")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped with error")
		}
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func databaseLogContext(log zerolog.Logger, databaseURL string) zerolog.Logger {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return log.With().Str("db_url", "invalid").Logger()
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return log.With().
		Str("db_host", host).
		Str("db_port", port).
		Str("db_name", name).
		Logger()
}
