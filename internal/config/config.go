package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Fallback policies for failed downloads.
const (
	// FallbackSubstitute masks failed downloads with a sample asset.
	FallbackSubstitute = "substitute"
	// FallbackSurface reports the real error to polling clients.
	FallbackSurface = "surface"
)

// Config struct for environment variables.
type Config struct {
	YTDLPPath string `envconfig:"YTDLP_PATH" default:"yt-dlp"`

	OutputDir  string `envconfig:"OUTPUT_DIR" default:"downloads"`
	TempDir    string `envconfig:"TEMP_DIR" default:"temp_downloads"`
	SamplesDir string `envconfig:"SAMPLES_DIR" default:"samples"`

	InfoTimeout     time.Duration `envconfig:"INFO_TIMEOUT" default:"30s"`
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"0"`

	JobTTL           time.Duration `envconfig:"JOB_TTL" default:"1h"`
	CleanupInterval  time.Duration `envconfig:"CLEANUP_INTERVAL" default:"10m"`
	KeepArtifactsFor time.Duration `envconfig:"KEEP_ARTIFACTS_FOR" default:"30m"`

	FallbackPolicy string `envconfig:"FALLBACK_POLICY" default:"substitute"`

	SampleVideoURL string `envconfig:"SAMPLE_VIDEO_URL" default:"https://samplelib.com/lib/preview/mp4/sample-5s.mp4"`
	SampleAudioURL string `envconfig:"SAMPLE_AUDIO_URL" default:"https://samplelib.com/lib/preview/mp3/sample-15s.mp3"`

	LogLevel          string `envconfig:"LOG_LEVEL" default:"INFO"`
	DBPath            string `envconfig:"DB_PATH" default:"downloads.db"`
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	Telemetry struct {
		Enabled        bool   `split_words:"true" default:"true"`
		ServiceName    string `split_words:"true" default:"ytgrab"`
		ServiceVersion string `split_words:"true" default:"dev"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:5001"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"10m"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	switch cfg.FallbackPolicy {
	case FallbackSubstitute, FallbackSurface:
	default:
		return nil, fmt.Errorf("invalid fallback policy: %s", cfg.FallbackPolicy)
	}

	return &cfg, nil
}

// SubstituteOnFailure reports whether failed downloads are masked with a
// sample asset.
func (c *Config) SubstituteOnFailure() bool {
	return c.FallbackPolicy == FallbackSubstitute
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
