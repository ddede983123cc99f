// keybridge serves the multi-provider chat gateway. Callers bring their own
// API keys per request; the server only holds endpoint and timeout settings.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/AliZeynalov/keybridge/internal/config"
	"github.com/AliZeynalov/keybridge/internal/dispatch"
	"github.com/AliZeynalov/keybridge/internal/gateway"
	"github.com/AliZeynalov/keybridge/internal/provider"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("keybridge", pflag.ContinueOnError)
	config.AddFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flagSet)
	if err != nil {
		return err
	}
	if err := cfg.SetupLogging(); err != nil {
		return err
	}
	if !log.IsLevelEnabled(log.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := provider.NewStandardRegistry(cfg.ProviderOptions(), cfg.Endpoints())
	handler := gateway.NewHandler(dispatch.New(registry), registry, cfg.Dispatch.DiscoveryTimeout)
	router := gateway.NewRouter(handler, cfg.Server.MaxBodyBytes)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":      cfg.Server.Port,
			"providers": len(registry.Adapters()),
			"event":     "server_started",
		}).Info("KeyBridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.WithField("event", "server_stopping").Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
