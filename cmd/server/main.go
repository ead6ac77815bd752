package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"challan-service/internal/config"
	"challan-service/internal/db"
	challanhttp "challan-service/internal/http"
	"challan-service/internal/mqtt"
	"challan-service/internal/repository"
	"challan-service/internal/service"
	"challan-service/internal/vision"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	gormDB, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	log.Info().Str("host", cfg.DB.Host).Str("name", cfg.DB.Name).Msg("database ready")

	repo := repository.NewChallanRepository(gormDB)

	publisher := mqtt.NewPublisher(cfg.MQTT, log.With().Str("component", "mqtt").Logger())
	if err := publisher.Connect(); err != nil {
		// The pipeline works without announcements; keep going.
		log.Warn().Err(err).Msg("mqtt publisher unavailable, continuing without it")
	}
	defer publisher.Disconnect()

	challanService := service.NewChallanService(repo, publisher, log.With().Str("component", "challans").Logger())

	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Camera.ID, time.Duration(cfg.Vision.TimeoutSeconds)*time.Second)
	captureService := service.NewCaptureService(
		visionClient, visionClient, visionClient,
		challanService,
		cfg.Locations,
		time.Duration(cfg.Capture.IntervalMS)*time.Millisecond,
		log.With().Str("component", "capture").Logger(),
	)

	statsAggregator := service.NewStatsAggregator(repo, log.With().Str("component", "stats").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go statsAggregator.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	handler := challanhttp.NewHandler(captureService, challanService, statsAggregator, cfg, log.With().Str("component", "http").Logger())
	handler.Register(router, challanhttp.JWTAuthMiddleware(cfg.Auth.JWTSecret))

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if err := captureService.StopSession(); err != nil && !errors.Is(err, service.ErrNoSession) {
		log.Warn().Err(err).Msg("failed to stop capture session")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.Level(level).With().Timestamp().Logger()
}
