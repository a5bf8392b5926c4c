package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ModeProduction = "prod"
	ModeDebug      = "debug"

	EnvPrefix = "YTMUX"
)

var ConfigPaths = []string{"/etc/ytmux", "./configs", "."}

type Config struct {
	Mode        string
	LogFilePath string

	APIKey        string
	ListenAddr    string
	PublicBaseURL string

	OutputDir  string
	FFmpegPath string

	Workers         int
	QueueSize       int
	PipelineTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	ProgressLogInterval time.Duration

	// ConfigFileUsed is empty when only environment variables were read.
	ConfigFileUsed string
}

func (c *Config) Debug() bool {
	return c.Mode == ModeDebug
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MODE", ModeDebug)
	v.SetDefault("LISTEN_ADDR", ":5000")
	v.SetDefault("OUTPUT_DIR", "videos")
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("QUEUE_SIZE", 16)
	v.SetDefault("PIPELINE_TIMEOUT", time.Duration(0))
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("PROGRESS_LOG_INTERVAL", 5*time.Second)
}

// Load reads config.env from ConfigPaths and YTMUX_* environment variables; the environment wins.
// A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	for _, p := range ConfigPaths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("env")
	return load(v)
}

// LoadFile reads the given env-format file instead of searching ConfigPaths.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config (used file: %q): %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{
		Mode:                strings.ToLower(strings.TrimSpace(v.GetString("MODE"))),
		LogFilePath:         v.GetString("LOG_FILE_PATH"),
		APIKey:              v.GetString("API_KEY"),
		ListenAddr:          v.GetString("LISTEN_ADDR"),
		PublicBaseURL:       strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		OutputDir:           v.GetString("OUTPUT_DIR"),
		FFmpegPath:          v.GetString("FFMPEG_PATH"),
		Workers:             v.GetInt("WORKERS"),
		QueueSize:           v.GetInt("QUEUE_SIZE"),
		PipelineTimeout:     v.GetDuration("PIPELINE_TIMEOUT"),
		RateLimitRPS:        v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
		ProgressLogInterval: v.GetDuration("PROGRESS_LOG_INTERVAL"),
		ConfigFileUsed:      v.ConfigFileUsed(),
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeProduction, ModeDebug:
	default:
		return fmt.Errorf("unknown MODE %q: you can use only '%s', '%s' or leave it empty", c.Mode, ModeProduction, ModeDebug)
	}
	if c.APIKey == "" {
		return errors.New("API_KEY can't be empty")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR can't be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("QUEUE_SIZE can't be negative, got %d", c.QueueSize)
	}
	if c.PipelineTimeout < 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT can't be negative, got %v", c.PipelineTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS can't be negative, got %v", c.RateLimitRPS)
	}
	return nil
}
