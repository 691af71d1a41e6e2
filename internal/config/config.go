package config

import (
	"fmt"
	"log"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Env                string `mapstructure:"ENV"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	DBSchema           string `mapstructure:"DB_SCHEMA"`
	DBMaxConns         int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir      string `mapstructure:"MIGRATIONS_DIR"`
	DateFormat         string `mapstructure:"DATE_FORMAT"`
	DateTimeFormat     string `mapstructure:"DATETIME_FORMAT"`
	MaxImportRows      int    `mapstructure:"MAX_IMPORT_ROWS"`
	ImportErrorPreview int    `mapstructure:"IMPORT_ERROR_PREVIEW"`
	MetricsFile        string `mapstructure:"METRICS_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("DATE_FORMAT", "02/01/2006")
	v.SetDefault("DATETIME_FORMAT", "02/01/2006 15:04")
	v.SetDefault("MAX_IMPORT_ROWS", 10000)
	v.SetDefault("IMPORT_ERROR_PREVIEW", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_SCHEMA")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("DATE_FORMAT")
	v.BindEnv("DATETIME_FORMAT")
	v.BindEnv("MAX_IMPORT_ROWS")
	v.BindEnv("IMPORT_ERROR_PREVIEW")
	v.BindEnv("METRICS_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running with ENV=development (console logging, debug defaults)")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the zerolog level for LOG_LEVEL, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks the settings that would otherwise fail late, in the middle
// of an import or while rendering dates.
func (c *Config) Validate() error {
	if c.MaxImportRows <= 0 {
		return fmt.Errorf("MAX_IMPORT_ROWS must be positive, got %d", c.MaxImportRows)
	}
	if c.ImportErrorPreview < 0 {
		return fmt.Errorf("IMPORT_ERROR_PREVIEW must not be negative, got %d", c.ImportErrorPreview)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("LOG_LEVEL %q is not a valid level: %w", c.LogLevel, err)
		}
	}

	// The display layout is used for parsing as well, so it must round-trip.
	ref := time.Date(2026, time.January, 25, 0, 0, 0, 0, time.UTC)
	parsed, err := time.Parse(c.DateFormat, ref.Format(c.DateFormat))
	if err != nil || !parsed.Equal(ref) {
		return fmt.Errorf("DATE_FORMAT %q does not round-trip a calendar date", c.DateFormat)
	}
	return nil
}
