package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prachikotadia/jobpulse-worker/internal/api"
	"github.com/prachikotadia/jobpulse-worker/internal/config"
	"github.com/prachikotadia/jobpulse-worker/internal/database"
	"github.com/prachikotadia/jobpulse-worker/internal/gmail"
	"github.com/prachikotadia/jobpulse-worker/internal/repository"
	"github.com/prachikotadia/jobpulse-worker/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Println("Database connected successfully")

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Println("Migrations completed successfully")

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// Initialize repositories
	jobRepo := repository.NewSyncJobRepository(sqlDB)
	stateRepo := repository.NewSyncStateRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	auditRepo := repository.NewFilterAuditRepository(db)

	// Initialize Gmail client
	gmailClient := gmail.NewClient(cfg.GmailClientID, cfg.GmailClientSecret)

	// Initialize services
	controller := service.NewController(jobRepo, stateRepo, time.Duration(cfg.LockTTLMinutes)*time.Minute)
	processor := service.NewSyncProcessor(controller, accountRepo, stateRepo, appRepo, auditRepo, gmailClient, cfg.MaxMessagesPerSync)
	ghostDetector := service.NewGhostDetector(appRepo, time.Duration(cfg.GhostAfterDays)*24*time.Hour)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start the ghost detector sweep loop
	go ghostDetector.Run(ctx, time.Duration(cfg.GhostSweepMinutes)*time.Minute)

	// Start the HTTP server
	server := api.NewServer(controller, processor, jobRepo, stateRepo, appRepo)
	errChan := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", cfg.ListenAddr)
		errChan <- server.Start(cfg.ListenAddr)
	}()

	select {
	case <-sigChan:
		log.Println("Shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		log.Println("Shutdown complete")
		return nil
	case err := <-errChan:
		return err
	}
}
