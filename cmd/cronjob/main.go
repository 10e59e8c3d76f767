package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vehirent-backend/internal/bootstrap"
	"vehirent-backend/internal/config"
	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/jobs"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/scheduler"
	"vehirent-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'remind-stale-handoffs', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.SetExpectedErrorCheck(domain.IsExpected)
	logger.Info("Starting VehiRent Cronjob Runner...", "log_level", cfg.Log.Level, "store", cfg.Store.Type)

	ctx := context.Background()

	backends, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open document store", "error", err)
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer backends.Close()

	push, email := bootstrap.Notifications(ctx, cfg, backends.Firebase)
	announcer := service.NewAnnouncer(backends.Repos.Users, push, email)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(backends.Repos.Handoffs, announcer, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			backends.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		backends.Close()
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once. It reports false for an unknown job name.
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "remind-stale-handoffs":
		jobRunner.RemindStaleHandoffs()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - remind-stale-handoffs\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
