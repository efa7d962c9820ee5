package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raduhhr/contact-api/config"
	"github.com/raduhhr/contact-api/handlers"
	"github.com/raduhhr/contact-api/logger"
	"github.com/raduhhr/contact-api/pkg/turnstile"
	"github.com/raduhhr/contact-api/router"
	"github.com/raduhhr/contact-api/services"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	// Load configuration; missing secrets or bindings fail here, before the
	// server accepts a single request.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client with TLS in production
	redisOptions := &redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			ServerName: cfg.Redis.Address,
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer redisClient.Close()

	// Initialize services
	rateLimitService := services.NewRateLimitService(redisClient)

	verifier := turnstile.NewClient(cfg.Turnstile.Secret,
		turnstile.WithVerifyURL(cfg.Turnstile.VerifyURL),
		turnstile.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Turnstile.TimeoutSeconds) * time.Second,
		}),
	)

	emailSender, err := services.NewEmailSender(context.Background(), &cfg.Email, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("Failed to initialize email sender: %v", err)
	}

	// Handlers
	contactHandler := handlers.NewContactHandler(cfg, rateLimitService, verifier, emailSender, prometheus.DefaultRegisterer)
	healthHandler := handlers.NewHealthHandler(redisClient, cfg.Server.Version)

	// Router setup
	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		ContactHandler: contactHandler,
		HealthHandler:  healthHandler,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}
}
