package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clairvoice/voicelink/internal/capture"
	"github.com/clairvoice/voicelink/internal/config"
	"github.com/clairvoice/voicelink/internal/observability"
	"github.com/clairvoice/voicelink/internal/playback"
	"github.com/clairvoice/voicelink/internal/session"
	"github.com/clairvoice/voicelink/internal/transcript"
	"github.com/clairvoice/voicelink/internal/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("model", cfg.Model).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("VoiceLink starting")

	transcripts := transcript.NewState()
	pipeline := capture.NewPipeline(
		capture.NewMalgoSource(cfg.CaptureBlockSize, cfg.CaptureSampleRate),
		logger,
	)
	scheduler := playback.NewScheduler(
		playback.NewOtoSink(cfg.PlaybackSampleRate),
		cfg.PlaybackSampleRate,
		logger,
	)
	dialer := &transport.WebSocketDialer{
		URL:    cfg.LiveEndpoint,
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		Logger: logger,
	}
	controller := session.NewController(dialer, pipeline, scheduler, transcripts, logger)

	scheduler.SetSpeakingObserver(func(speaking bool) {
		logger.Info().Bool("speaking", speaking).Msg("Model speaking state changed")
	})

	// Metrics and health endpoints
	if cfg.MetricsEnabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", observability.HealthCheckHandler())
		mux.HandleFunc("/ready", observability.ReadinessHandler(observability.Check{
			Name: "session",
			Fn: func(ctx context.Context) (bool, error) {
				return controller.State() == session.StateActive, nil
			},
		}))
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.MetricsPort),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info().Str("port", cfg.MetricsPort).Msg("Prometheus metrics enabled at /metrics")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = controller.Start(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start live session")
	}

	// Mirror transcript and volume into the log until the session ends
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var last transcript.Snapshot
	for {
		select {
		case <-ticker.C:
			if controller.State() == session.StateIdle {
				logger.Info().Msg("Session ended remotely")
				return
			}
			snap := controller.Snapshot()
			if snap == last {
				continue
			}
			logger.Info().
				Str("input", snap.Input).
				Str("output", snap.Output).
				Float64("volume", snap.Volume).
				Bool("speaking", controller.Speaking()).
				Msg("Session update")
			last = snap
		case <-quit:
			logger.Info().Msg("Shutting down...")
			if err := controller.Close(); err != nil {
				logger.Error().Err(err).Msg("Session teardown failed")
			}
			logger.Info().Msg("Session closed")
			return
		}
	}
}
