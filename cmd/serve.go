package cmd

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"drills-server/config"
	"drills-server/db"
	"drills-server/handlers"
	"drills-server/ingestion"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(cfg, store)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	router := handlers.NewRouter(cfg, store, svc)

	if cfg.IngestionInterval > 0 {
		go runScheduledIngestion(ctx, store, cfg)
	}

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Drills server starting on %s (%s backend)", cfg.ServerPort, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	log.Println("Server exited gracefully.")
	return nil
}

// runScheduledIngestion re-ingests every bank subject on each tick until ctx is cancelled.
func runScheduledIngestion(ctx context.Context, store db.Store, cfg *config.Config) {
	ticker := time.NewTicker(cfg.IngestionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Println("Running scheduled ingestion...")
			if err := ingestion.ProcessAll(ctx, store, cfg.Bank.Path, "system"); err != nil {
				log.Printf("Scheduled ingestion finished with errors: %v", err)
			}
		}
	}
}
