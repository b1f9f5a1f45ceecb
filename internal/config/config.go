// Package config loads canvasctl settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/Sternrassler/canvas-lms-client/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultFile is read when Load is given no path.
const DefaultFile = ".env"

type Config struct {
	Canvas   CanvasConfig
	Workers  WorkerConfig
	Log      LogConfig
	Redis    RedisConfig
	Snapshot SnapshotConfig

	// MetricsAddr serves /metrics while a command runs. Empty disables it.
	MetricsAddr string
}

type CanvasConfig struct {
	Token    string
	BaseURL  string
	Timezone string
	Verify   bool
	Timeout  time.Duration
}

// WorkerConfig sizes the per-course worker pools.
type WorkerConfig struct {
	Assignments int
	Peers       int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SnapshotConfig controls publishing of result tables.
type SnapshotConfig struct {
	TTL time.Duration
}

// Load reads path (DefaultFile when empty) and the environment. Environment
// variables win over the file. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	_ = godotenv.Load(path)

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	cfg.Canvas = CanvasConfig{
		Token:    v.GetString("CANVAS_API_TOKEN"),
		BaseURL:  v.GetString("CANVAS_BASE_URL"),
		Timezone: v.GetString("CANVAS_TIMEZONE"),
		Verify:   v.GetBool("CANVAS_VERIFY"),
		Timeout:  parseDuration(v.GetString("CANVAS_TIMEOUT"), 30*time.Second),
	}

	cfg.Workers = WorkerConfig{
		Assignments: v.GetInt("CANVAS_MAX_WORKERS"),
		Peers:       v.GetInt("CANVAS_PEER_WORKERS"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("CANVAS_LOG_LEVEL"),
		Pretty: v.GetBool("CANVAS_LOG_PRETTY"),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("CANVAS_REDIS_ADDR"),
		Password: v.GetString("CANVAS_REDIS_PASSWORD"),
		DB:       v.GetInt("CANVAS_REDIS_DB"),
	}

	cfg.Snapshot = SnapshotConfig{
		TTL: parseDuration(v.GetString("CANVAS_SNAPSHOT_TTL"), 24*time.Hour),
	}

	cfg.MetricsAddr = v.GetString("CANVAS_METRICS_ADDR")

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Canvas.Token) == "" {
		errs = append(errs, errors.New("CANVAS_API_TOKEN is required"))
	}
	if strings.TrimSpace(c.Canvas.BaseURL) == "" {
		errs = append(errs, errors.New("CANVAS_BASE_URL is required"))
	}
	return errors.Join(errs...)
}

// ClientConfig converts the Canvas settings into a client.Config.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Canvas.Token, c.Canvas.BaseURL)
	if c.Canvas.Timezone != "" {
		cfg.Timezone = c.Canvas.Timezone
	}
	cfg.VerifyConnection = c.Canvas.Verify
	cfg.Timeout = c.Canvas.Timeout
	return cfg
}

// LoggingConfig converts the log settings into a logging.Config.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(c.Log.Level))
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// SnapshotsEnabled reports whether a Redis address is configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.Redis.Addr != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CANVAS_TIMEZONE", client.DefaultTimezone)
	v.SetDefault("CANVAS_VERIFY", true)
	v.SetDefault("CANVAS_TIMEOUT", "30s")

	v.SetDefault("CANVAS_MAX_WORKERS", 5)
	v.SetDefault("CANVAS_PEER_WORKERS", 2)

	v.SetDefault("CANVAS_LOG_LEVEL", "info")
	v.SetDefault("CANVAS_LOG_PRETTY", false)

	v.SetDefault("CANVAS_REDIS_ADDR", "")
	v.SetDefault("CANVAS_REDIS_PASSWORD", "")
	v.SetDefault("CANVAS_REDIS_DB", 0)
	v.SetDefault("CANVAS_SNAPSHOT_TTL", "24h")

	v.SetDefault("CANVAS_METRICS_ADDR", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
