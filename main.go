package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/sahyadri-labs/krishirakshak/api"
	"github.com/sahyadri-labs/krishirakshak/config"
	"github.com/sahyadri-labs/krishirakshak/genai"
	"github.com/sahyadri-labs/krishirakshak/pipeline"
	"github.com/sahyadri-labs/krishirakshak/store"
	"github.com/sahyadri-labs/krishirakshak/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	logger.Info().Int("port", cfg.Port).Str("model", cfg.ModelPath).Msg("starting krishirakshak")

	// Load the classifier artifact up front; a broken model should fail
	// startup, not the first upload.
	scorer, err := vision.NewOnnxScorer(vision.OnnxConfig{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.OrtLibraryPath,
		InputName:   cfg.ModelInputName,
		OutputName:  cfg.ModelOutputName,
		InputSize:   cfg.InputSize,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load classifier model")
	}
	classifier := vision.NewClassifier(scorer, cfg.InputSize)
	defer classifier.Close()

	convo := store.NewConversationStore()
	decoder := vision.NewDecoder()
	gen := genai.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout())
	explain := pipeline.NewExplanationClient(cfg.ExplainBaseURL, cfg.ExplainTimeout())
	notifier := pipeline.LogNotifier{Logger: logger}

	orch := pipeline.New(convo, decoder, classifier, explain, notifier, logger, pipeline.Options{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxBatchImages:      cfg.MaxBatchImages,
	})

	h := api.NewHandler(orch, convo, gen, logger)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	// The classifier artifact is served at a well-known static path.
	if cfg.ModelStaticDir != "" {
		e.Static("/model", cfg.ModelStaticDir)
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().Int("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down gracefully")
	}

	logger.Info().Msg("stopped")
}
