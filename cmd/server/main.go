package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "vehirent-backend/internal/api/http"
	"vehirent-backend/internal/bootstrap"
	"vehirent-backend/internal/config"
	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/realtime"
	"vehirent-backend/internal/security"
	"vehirent-backend/internal/service"
	"vehirent-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.SetExpectedErrorCheck(domain.IsExpected)
	logger.Info("Starting VehiRent hand-off backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "store", cfg.Store.Type, "storage", cfg.Storage.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize document store
	backends, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open document store", "error", err)
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer backends.Close()
	repos := backends.Repos

	// Initialize blob storage
	blobs, err := storage.New(ctx, cfg.BlobStorage(), backends.Firebase)
	if err != nil {
		logger.Error("Failed to initialize blob storage", "error", err)
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	// Progress feed
	hub := realtime.NewHub(cfg.Server.AllowedOrigins)
	go hub.Run(ctx)

	var progress service.ProgressPublisher = realtime.NewLocalPublisher(hub)
	if cfg.Redis.URL != "" {
		client, err := realtime.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err)
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		progress = realtime.NewRedisPublisher(client)
		go func() {
			if err := realtime.Subscribe(ctx, client, hub); err != nil {
				logger.Error("Progress subscription ended", "error", err)
			}
		}()
		logger.Info("Progress fan-out through redis", "channel", realtime.ProgressChannel)
	}

	// Initialize Services
	push, email := bootstrap.Notifications(ctx, cfg, backends.Firebase)
	announcer := service.NewAnnouncer(repos.Users, push, email)
	profile := cfg.ImageProfile()

	evidenceSvc := service.NewEvidenceService(repos.Handoffs, blobs, profile, progress, time.Now)
	conditionSvc := service.NewConditionService(repos.Handoffs, progress, time.Now)
	damageLedger := service.NewDamageLedger(repos.Handoffs, blobs, profile, progress, time.Now)
	handoffSvc := service.NewHandoffService(repos, evidenceSvc, conditionSvc, damageLedger,
		service.NewLifecycleController(), progress, announcer, time.Now)
	reconciliationSvc := service.NewReconciliationService(repos.Reservations, repos.Handoffs)
	reviewSvc := service.NewReviewService(repos, time.Now)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Initialize HTTP handlers
	router := httpapi.NewRouter(httpapi.Handlers{
		Handoffs: httpapi.NewHandoffHandler(handoffSvc, damageLedger, reconciliationSvc, cfg.Server.MaxUploadMB<<20),
		Reviews:  httpapi.NewReviewHandler(reviewSvc),
		Files:    httpapi.LocalFiles(blobs),
		Hub:      hub,
	}, tokenManager)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
