package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultLiveEndpoint is the bidirectional voice session endpoint.
const DefaultLiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Config holds all configuration for the voicelink client.
type Config struct {
	// Remote live session configuration
	APIKey       string `envconfig:"VOICELINK_API_KEY" required:"true"`
	Model        string `envconfig:"VOICELINK_MODEL" default:"models/gemini-2.0-flash-live-001"`
	LiveEndpoint string `envconfig:"VOICELINK_LIVE_ENDPOINT" default:"wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"`

	// Audio configuration. Capture and playback rates are fixed for the
	// lifetime of a direction; the remote session speaks at 24kHz.
	CaptureBlockSize   int `envconfig:"CAPTURE_BLOCK_SIZE" default:"4096"`  // Samples per capture block
	CaptureSampleRate  int `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"` // Hz, mono
	PlaybackSampleRate int `envconfig:"PLAYBACK_SAMPLE_RATE" default:"24000"` // Hz, mono

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`   // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"` // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9090"`
}

// Load reads configuration from environment variables, first attempting to
// load a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without touching a .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("VOICELINK_API_KEY is required")
	}
	if cfg.CaptureBlockSize <= 0 {
		return nil, fmt.Errorf("CAPTURE_BLOCK_SIZE must be positive")
	}
	if cfg.CaptureSampleRate <= 0 || cfg.PlaybackSampleRate <= 0 {
		return nil, fmt.Errorf("sample rates must be positive")
	}

	return &cfg, nil
}
