package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"commerce/internal/config"
	"commerce/internal/logging"
	"commerce/internal/repository"

	_ "commerce/docs"
)

// @title Commerce API
// @version 1.0
// @description Cart, orders, payment reconciliation and course assessment.
// @host localhost:9091
// @BasePath /api/v1
func main() {
	var envFiles []string
	root := &cobra.Command{
		Use:          "commerce",
		Short:        "Commerce consistency engine: cart, orders, payments and course assessment",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringArrayVar(&envFiles, "env-file", nil, "Env files to load before the environment (default .env)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded SQL migrations to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logging.New("commerce", cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	app, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.server.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", httpServer.Addr, "store", cfg.Store, "provider", cfg.PaymentProvider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	return nil
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	log := logging.New("commerce-migrate", cfg.LogLevel)
	pool, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := repository.NewPostgres(pool).Migrate(ctx)
	for _, name := range applied {
		log.Info("migration applied", "version", name)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Info("schema is up to date")
	}
	return nil
}
