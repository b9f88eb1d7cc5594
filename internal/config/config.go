package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is a process-scoped immutable snapshot of environment configuration.
// It is loaded once at startup and threaded into workflow/activity
// constructors as an input value — nothing below this package ever calls
// os.Getenv again.
type Config struct {
	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string

	MaxConcurrentActivities    int
	MaxConcurrentWorkflowTasks int

	MediaInputRoot      string
	MediaProcessingRoot string
	MediaStagingRoot    string
	MediaOutputRoot     string

	AnthropicAPIKey string
	AnthropicModel  string

	AniListGraphQLURL string

	MkvextractPath string
	FFmpegPath     string

	LogLevel string
}

// Load reads configuration from the environment, applying the defaults from
// the external-interfaces contract. Every field has a usable fallback; the
// only error it returns is for a non-positive MAX_CONCURRENT_ACTIVITIES.
func Load() (*Config, error) {
	cfg := &Config{
		TemporalAddress:   env("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace: env("TEMPORAL_NAMESPACE", "default"),
		TemporalTaskQueue: env("TEMPORAL_TASK_QUEUE", "SERA"),

		MaxConcurrentActivities:    envInt("MAX_CONCURRENT_ACTIVITIES", 10),
		MaxConcurrentWorkflowTasks: envInt("MAX_CONCURRENT_WORKFLOW_TASKS", 10),

		MediaInputRoot:      env("MEDIA_INPUT_ROOT", "/mnt/media/input"),
		MediaProcessingRoot: env("MEDIA_PROCESSING_ROOT", "/mnt/media/processing"),
		MediaStagingRoot:    env("MEDIA_STAGING_ROOT", "/mnt/media/staging"),
		MediaOutputRoot:     env("MEDIA_OUTPUT_ROOT", "/mnt/media/output"),

		AnthropicAPIKey: env("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  env("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),

		AniListGraphQLURL: env("ANILIST_GRAPHQL_URL", "https://graphql.anilist.co"),

		MkvextractPath: env("MKVEXTRACT_PATH", "mkvextract"),
		FFmpegPath:     env("FFMPEG_PATH", "ffmpeg"),

		LogLevel: env("LOG_LEVEL", "info"),
	}
	if cfg.MaxConcurrentActivities <= 0 {
		return nil, fmt.Errorf("config: MAX_CONCURRENT_ACTIVITIES must be positive")
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
