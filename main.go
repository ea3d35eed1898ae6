package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safehorizon/config"
	"safehorizon/database"
	"safehorizon/routes"
	"safehorizon/utils"
	"safehorizon/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	setupLogger(cfg)

	// Database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	// Broker
	broker := config.InitRedis(cfg)
	defer broker.Close()

	// Notifier: push + SMS, or a no-op when credentials are absent
	var notifier utils.Notifier = utils.NoopNotifier{}
	if cfg.PushCredentialsPath != "" && cfg.TwilioAccountSID != "" {
		n, err := utils.NewFirebaseTwilioNotifier(cfg.PushCredentialsPath, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
		if err != nil {
			logrus.Warnf("notifier initialization failed, push/sms disabled: %v", err)
		} else {
			notifier = n
		}
	} else {
		logrus.Warn("push/sms credentials not configured, deliveries will be dropped")
	}

	app := routes.Setup(cfg, db, broker, notifier)

	go app.Hub.Run()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	workers.StartZoneWorker(workerCtx, app.ZoneIndex, cfg.ZoneRefreshInterval())
	workers.StartScoreWorker(workerCtx, app.LocationRepo, app.ScoringService)
	workers.StartCleanupWorker(workerCtx, app.LocationRepo, cfg.LocationRetentionDays)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("SafeHorizon backend starting on port ", cfg.Port)
		logrus.Info("Alert stream endpoint: /api/alerts/subscribe")
		logrus.Info("Health check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Close streaming sessions with 1001, stop workers, then drain HTTP.
	app.Gateway.Shutdown()
	app.Hub.Shutdown()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("Server shutdown complete")
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
