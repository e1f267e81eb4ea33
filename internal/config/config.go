// Package config loads offpos settings: built-in defaults, then an optional
// YAML file, then OFFPOS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/offpos/internal/logger"
	"github.com/roach88/offpos/internal/model"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "OFFPOS_CONFIG"

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logger   logger.Config  `yaml:"logger"`
	POS      POSConfig      `yaml:"pos"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type POSConfig struct {
	Currency          string `yaml:"currency"`
	LowStockThreshold int    `yaml:"low_stock_threshold"`
	SeedDemo          bool   `yaml:"seed_demo"`
	ExportDir         string `yaml:"export_dir"`
}

// ScheduleConfig holds cron specs for the daemon. An empty spec disables the
// job.
type ScheduleConfig struct {
	Recover string `yaml:"recover"`
	Export  string `yaml:"export"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "offpos.db"},
		Logger: logger.Config{
			Mode:     "development",
			Level:    "warn",
			Encoding: "console",
			Filename: "offpos.log",
		},
		POS: POSConfig{
			Currency:          "৳",
			LowStockThreshold: model.DefaultLowStockThreshold,
			SeedDemo:          true,
			ExportDir:         ".",
		},
		Schedule: ScheduleConfig{
			Recover: "@every 1m",
			Export:  "",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// OFFPOS_CONFIG is consulted; when neither names a file only defaults and
// environment apply. A named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Path = getEnv("OFFPOS_DB_PATH", cfg.Database.Path)

	cfg.Logger.Mode = getEnv("OFFPOS_LOG_MODE", cfg.Logger.Mode)
	cfg.Logger.Level = getEnv("OFFPOS_LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getEnv("OFFPOS_LOG_ENCODING", cfg.Logger.Encoding)
	cfg.Logger.FileEnable = getEnvBool("OFFPOS_LOG_FILE_ENABLE", cfg.Logger.FileEnable)
	cfg.Logger.Filename = getEnv("OFFPOS_LOG_FILENAME", cfg.Logger.Filename)

	cfg.POS.Currency = getEnv("OFFPOS_CURRENCY", cfg.POS.Currency)
	cfg.POS.LowStockThreshold = getEnvInt("OFFPOS_LOW_STOCK_THRESHOLD", cfg.POS.LowStockThreshold)
	cfg.POS.SeedDemo = getEnvBool("OFFPOS_SEED_DEMO", cfg.POS.SeedDemo)
	cfg.POS.ExportDir = getEnv("OFFPOS_EXPORT_DIR", cfg.POS.ExportDir)

	cfg.Schedule.Recover = getEnv("OFFPOS_RECOVER_SCHEDULE", cfg.Schedule.Recover)
	cfg.Schedule.Export = getEnv("OFFPOS_EXPORT_SCHEDULE", cfg.Schedule.Export)
}

// Validate checks values that would otherwise fail later at first use.
func (c Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.POS.LowStockThreshold < 1 {
		errs = append(errs, fmt.Errorf("pos.low_stock_threshold must be >= 1, got %d", c.POS.LowStockThreshold))
	}
	if c.Logger.FileEnable && c.Logger.Filename == "" {
		errs = append(errs, errors.New("logger.filename is required when logger.file_enable is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
