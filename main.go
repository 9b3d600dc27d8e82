package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/camkit/api/handlers"
	"github.com/yeti47/camkit/api/middleware"
	"github.com/yeti47/camkit/ccc/db"
	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/config"
	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/events"
	"github.com/yeti47/camkit/params"
	"github.com/yeti47/camkit/session"
)

const retentionInterval = time.Hour

func main() {
	configPath := flag.String("config", "camkit.json", "Path to the configuration file")
	hashAPIKey := flag.String("hash-api-key", "", "Print hash and salt for the given API key and exit")

	// Config override flags
	driver := flag.String("driver", "", "Camera driver: gocv, v4l2 or mock (overrides config)")
	cameraDevice := flag.String("camera-device", "", "Camera device index or path (overrides config)")
	facing := flag.String("facing", "", "Camera facing: back or front (overrides config)")
	displayOrientation := flag.Int("display-orientation", -1, "Display orientation in degrees (overrides config)")
	deviceOrientation := flag.Int("device-orientation", -1, "Device orientation in degrees (overrides config)")
	webAddr := flag.String("web-addr", "", "Listen address (overrides config)")
	webPort := flag.Int("web-port", 0, "Listen port (overrides config)")
	databasePath := flag.String("database", "", "Event database path (overrides config)")
	logPath := flag.String("log-path", "", "Log directory (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")

	flag.Parse()

	if *hashAPIKey != "" {
		hash, salt, err := middleware.HashKey(*hashAPIKey)
		if err != nil {
			log.Fatalf("Failed to hash API key: %v", err)
		}
		fmt.Printf("api_key_hash: %s\napi_key_salt: %s\n", hash, salt)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg.Override(config.ConfigOverrides{
		Driver:             driver,
		CameraDevice:       cameraDevice,
		Facing:             facing,
		DisplayOrientation: displayOrientation,
		DeviceOrientation:  deviceOrientation,
		WebAddr:            webAddr,
		WebPort:            webPort,
		DatabasePath:       databasePath,
		LogPath:            logPath,
		LogLevel:           logLevel,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, "camkit")
	logger.Info("Starting camkit", "driver", cfg.Driver, "device", cfg.CameraDevice, "port", cfg.WebPort)

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	eventRepo, err := events.NewSQLiteEventRepository(database)
	if err != nil {
		log.Fatalf("Failed to create event repository: %v", err)
	}

	verifier, err := middleware.NewKeyVerifier(cfg.APIKeyHash, cfg.APIKeySalt)
	if err != nil {
		log.Fatalf("Invalid API key configuration: %v", err)
	}
	if !verifier.Enabled() {
		logger.Warn("No API key configured, the control API is unauthenticated")
	}

	dev, err := newDevice(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create camera device: %v", err)
	}

	// the session does not exist yet when the dispatcher chain is built
	var camera *session.Session
	escalation := events.EscalationSettings{
		Threshold:  cfg.EscalationThreshold,
		TimeWindow: cfg.EscalationWindow(),
		Kinds:      []events.Kind{events.KindTransientError, events.KindDeviceRejected},
	}
	escalator := events.NewEscalatingDispatcher(
		events.NewMemoryFailureTracker(escalation),
		escalation,
		func(event events.Event, count int) {
			logger.Error("Too many device failures, closing camera", "kind", event.Kind, "count", count)
			if camera != nil {
				// dispatch happens while the session lock is held
				go camera.Stop()
			}
		},
	)
	// events are dispatched under the session lock, keep SQLite off that path
	eventStore := events.NewAsyncDispatcher(events.NewRepositoryDispatcher(eventRepo, logger), events.DefaultQueueSize, logger)
	dispatcher := events.NewMultiDispatcher(
		events.NewLoggingDispatcher(logger),
		eventStore,
		escalator,
	)

	focusSetting, _ := params.ParseFocusSetting(cfg.Focus)
	flashMode, _ := device.ParseFlashMode(cfg.Flash)

	camera = session.New(dev, session.Settings{
		Screen:             cfg.ScreenSize(),
		LockVideoRatio:     cfg.LockVideoRatio,
		DisplayOrientation: cfg.DisplayOrientation,
		DeviceOrientation:  cfg.DeviceOrientation,
		RequestedFps:       cfg.RequestedFps,
		Focus:              focusSetting,
		Flash:              flashMode,
		ZoomFactor:         cfg.Zoom,
		Apply: params.Settings{
			MaxAttempts: cfg.MaxApplyAttempts,
			RetryDelay:  cfg.RetryDelay(),
		},
		FocusSettleDelay: cfg.FocusSettleDelay(),
		FocusAreaSize:    cfg.FocusAreaSize,
	}, dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := camera.Start(ctx); err != nil {
		// the API can retry through /api/session/start
		logger.Error("Failed to start camera session", "error", err)
	} else {
		logger.Info("Camera session started", "session", camera.ID())
	}

	if cfg.EventRetentionDays > 0 {
		go runRetention(ctx, eventRepo, time.Duration(cfg.EventRetentionDays)*24*time.Hour, logger)
	}

	authMiddleware := middleware.NewAuthMiddleware(logger, verifier)
	cameraHandler := handlers.NewCameraHandler(logger, camera)
	eventHandler := handlers.NewEventHandler(logger, eventRepo)

	router := initializeGin(cfg)
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	handlers.RegisterRoutes(router, authMiddleware, cameraHandler, eventHandler)

	addr := fmt.Sprintf("%s:%d", cfg.WebAddr, cfg.WebPort)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	cancel()
	camera.Stop()
	eventStore.Close(5 * time.Second)
	logger.Info("camkit stopped")
}

// runRetention periodically deletes events older than maxAge
func runRetention(ctx context.Context, repo events.EventRepository, maxAge time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-maxAge))
		if err != nil {
			logger.Error("Failed to delete old events", "error", err)
		} else if deleted > 0 {
			logger.Info("Deleted old events", "count", deleted)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
