package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/voxora/maestro/internal/backoff"
	"github.com/voxora/maestro/internal/poller"
)

// Config holds all configuration for the batch orchestrator.
type Config struct {
	Batch   BatchConfig
	Vendor  VendorConfig
	Log     LogConfig
	Store   StoreConfig
	Metrics MetricsConfig
}

type BatchConfig struct {
	MaxConcurrent    int
	InterSubmitDelay time.Duration
	PollInterval     time.Duration
	MaxPollAttempts  int
	RetryBase        time.Duration
	MaxSubmitRetries int
	Window           string
}

type VendorConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type LogConfig struct {
	EventLogPath string
	AMQPURL      string
}

type StoreConfig struct {
	DatabaseURL string
	RedisURL    string
}

type MetricsConfig struct {
	Port int
}

// Load reads orchestrator configuration from environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Defaults; retry and poll defaults come from the packages that own them.
	retry := backoff.Default()
	viper.SetDefault("MAESTRO_MAX_CONCURRENT", 2)
	viper.SetDefault("MAESTRO_INTER_SUBMIT_DELAY_MS", 1000)
	viper.SetDefault("MAESTRO_POLL_INTERVAL_MS", int(poller.DefaultInterval.Milliseconds()))
	viper.SetDefault("MAESTRO_MAX_POLL_ATTEMPTS", 30)
	viper.SetDefault("MAESTRO_RETRY_BASE_MS", int(retry.Base().Milliseconds()))
	viper.SetDefault("MAESTRO_MAX_SUBMIT_RETRIES", retry.MaxAttempts())
	viper.SetDefault("MAESTRO_WINDOW", "chunked")
	viper.SetDefault("DUOMI_API_BASE_URL", "https://duomiapi.com")
	viper.SetDefault("DUOMI_API_KEY", "")
	viper.SetDefault("DUOMI_MODEL_NAME", "kling-v1")
	viper.SetDefault("DUOMI_HTTP_TIMEOUT_MS", 30000)
	viper.SetDefault("MAESTRO_EVENT_LOG", "logs/generation_events.jsonl")
	viper.SetDefault("MAESTRO_AMQP_URL", "")
	viper.SetDefault("MAESTRO_DATABASE_URL", "")
	viper.SetDefault("MAESTRO_REDIS_URL", "")
	viper.SetDefault("MAESTRO_METRICS_PORT", 9091)

	_ = viper.ReadInConfig()

	cfg := &Config{}
	cfg.Batch.MaxConcurrent = viper.GetInt("MAESTRO_MAX_CONCURRENT")
	cfg.Batch.InterSubmitDelay = time.Duration(viper.GetInt("MAESTRO_INTER_SUBMIT_DELAY_MS")) * time.Millisecond
	cfg.Batch.PollInterval = time.Duration(viper.GetInt("MAESTRO_POLL_INTERVAL_MS")) * time.Millisecond
	cfg.Batch.MaxPollAttempts = viper.GetInt("MAESTRO_MAX_POLL_ATTEMPTS")
	cfg.Batch.RetryBase = time.Duration(viper.GetInt("MAESTRO_RETRY_BASE_MS")) * time.Millisecond
	cfg.Batch.MaxSubmitRetries = viper.GetInt("MAESTRO_MAX_SUBMIT_RETRIES")
	cfg.Batch.Window = viper.GetString("MAESTRO_WINDOW")
	cfg.Vendor.BaseURL = viper.GetString("DUOMI_API_BASE_URL")
	cfg.Vendor.APIKey = viper.GetString("DUOMI_API_KEY")
	cfg.Vendor.Model = viper.GetString("DUOMI_MODEL_NAME")
	cfg.Vendor.Timeout = time.Duration(viper.GetInt("DUOMI_HTTP_TIMEOUT_MS")) * time.Millisecond
	cfg.Log.EventLogPath = viper.GetString("MAESTRO_EVENT_LOG")
	cfg.Log.AMQPURL = viper.GetString("MAESTRO_AMQP_URL")
	cfg.Store.DatabaseURL = viper.GetString("MAESTRO_DATABASE_URL")
	cfg.Store.RedisURL = viper.GetString("MAESTRO_REDIS_URL")
	cfg.Metrics.Port = viper.GetInt("MAESTRO_METRICS_PORT")

	return cfg, nil
}
