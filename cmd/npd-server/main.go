package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/npd/provider-directory/internal/config"
	"github.com/npd/provider-directory/internal/domain/affiliation"
	"github.com/npd/provider-directory/internal/domain/endpoint"
	"github.com/npd/provider-directory/internal/domain/location"
	"github.com/npd/provider-directory/internal/domain/organization"
	"github.com/npd/provider-directory/internal/domain/practitioner"
	"github.com/npd/provider-directory/internal/domain/practitionerrole"
	"github.com/npd/provider-directory/internal/platform/auth"
	"github.com/npd/provider-directory/internal/platform/db"
	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/internal/platform/middleware"
	"github.com/npd/provider-directory/internal/platform/vocab"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "npd-server",
		Short: "National Provider Directory FHIR API server",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the directory API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// codeLoader adapts a two-column code table to the vocab cache.
func codeLoader(q db.Querier, query string) vocab.LoaderFunc {
	return func(ctx context.Context) (map[string]string, error) {
		rows, err := q.Query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		defer rows.Close()

		entries := map[string]string{}
		for rows.Next() {
			var code, display string
			if err := rows.Scan(&code, &display); err != nil {
				return nil, err
			}
			entries[code] = display
		}
		return entries, rows.Err()
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Vocabularies, refreshed lazily on a TTL
	vocabs := &vocab.Set{
		NameUse:     vocab.NewCache(codeLoader(pool, `SELECT id::text, value FROM name_use`), cfg.VocabTTL),
		PhoneUse:    vocab.NewCache(codeLoader(pool, `SELECT id::text, value FROM phone_use`), cfg.VocabTTL),
		Nucc:        vocab.NewCache(codeLoader(pool, `SELECT code, display_name FROM nucc`), cfg.VocabTTL),
		OtherIDType: vocab.NewCache(codeLoader(pool, `SELECT id::text, value FROM other_id_type`), cfg.VocabTTL),
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Timeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(auth.Identify(auth.Config{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	}))

	fhirGroup := e.Group("/fhir")
	fhirGroup.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	// Capability statement reflects whatever the handlers register
	capability := fhir.NewCapabilityBuilder(cfg.BaseURL, version)

	orgHandler := organization.NewHandler(
		organization.NewService(organization.NewPGRepository(pool, vocabs)), cfg.BaseURL)
	orgHandler.RegisterRoutes(fhirGroup, capability)

	practitionerHandler := practitioner.NewHandler(
		practitioner.NewService(practitioner.NewPGRepository(pool, vocabs)), cfg.BaseURL)
	practitionerHandler.RegisterRoutes(fhirGroup, capability)

	roleHandler := practitionerrole.NewHandler(
		practitionerrole.NewService(practitionerrole.NewPGRepository(pool, vocabs)), cfg.BaseURL)
	roleHandler.RegisterRoutes(fhirGroup, capability)

	locationHandler := location.NewHandler(
		location.NewService(location.NewPGRepository(pool)), cfg.BaseURL)
	locationHandler.RegisterRoutes(fhirGroup, capability)

	endpointHandler := endpoint.NewHandler(
		endpoint.NewService(endpoint.NewPGRepository(pool)), cfg.BaseURL)
	endpointHandler.RegisterRoutes(fhirGroup, capability)

	affiliationHandler := affiliation.NewHandler(
		affiliation.NewService(affiliation.NewPGRepository(pool)), cfg.BaseURL)
	affiliationHandler.RegisterRoutes(fhirGroup, capability)

	fhirGroup.GET("/metadata", capability.Handler())
	fhirGroup.GET("/healthCheck", db.HealthHandler(pool))

	// Serve
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}
