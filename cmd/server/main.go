package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mailchimp-reporter/internal/api"
	"github.com/ignite/mailchimp-reporter/internal/config"
	"github.com/ignite/mailchimp-reporter/internal/mailchimp"
	"github.com/ignite/mailchimp-reporter/internal/pkg/logger"
	"github.com/ignite/mailchimp-reporter/internal/report"
	"github.com/ignite/mailchimp-reporter/internal/reports"
	"github.com/ignite/mailchimp-reporter/internal/settings"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Mailchimp campaign reporter (cmd/server/main.go)")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Resolve the per-user app config directory
	configDir := cfg.App.ConfigDir
	if configDir == "" {
		configDir, err = settings.DefaultDir()
		if err != nil {
			log.Fatalf("Failed to resolve config directory: %v", err)
		}
	}
	logger.Info("using app config directory", "dir", configDir)

	// Stores
	settingsStore := settings.NewStore(configDir)
	reportStore := reports.NewStore(configDir)

	// Event hub for the front-end observer stream
	hub := api.NewEventHub()

	// Report generator; the Mailchimp client is built per run from the
	// credential in settings
	timeout := cfg.Mailchimp.Timeout()
	generator := report.NewGenerator(settingsStore, reportStore, func(apiKey string) report.CampaignAPI {
		return mailchimp.NewClient(apiKey, timeout)
	})

	// HTTP surface
	handlers := api.NewHandlers(settingsStore, reportStore, generator, hub)
	router := api.SetupRoutes(handlers)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
