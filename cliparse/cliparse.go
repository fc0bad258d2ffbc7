package cliparse

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL  string `yaml:"database_url"`
	DatabaseType string `yaml:"database_type"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	BatchSize    int    `yaml:"batch_size"`
	ConfigFile   string `yaml:"-"`
}

// Defaults
const (
	DefaultDatabaseType = "sqlite"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultBatchSize    = 500
)

// ParseFlags reads global flags up to the first command word and returns
// the config plus the remaining args. Layers, lowest first: defaults,
// YAML config file, .env (loaded by main, never overriding variables
// already set), environment, flags.
func ParseFlags(args []string) (Config, []string, error) {
	var cfg Config

	fs := flag.NewFlagSet("worldprune", flag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVarP(&cfg.DatabaseURL, "database-url", "d", "", "Database URL or SQLite path")
	fs.StringVarP(&cfg.DatabaseType, "database-type", "t", "", "Database type (sqlite or postgres)")
	fs.StringVarP(&cfg.ConfigFile, "config", "c", "", "YAML config file")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format (text or json)")
	fs.IntVar(&cfg.BatchSize, "batch-size", 0, "Ids bound per statement")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	// Fall back to environment variables
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = os.Getenv("WORLDPRUNE_CONFIG")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = os.Getenv("LOG_FORMAT")
	}
	if cfg.BatchSize == 0 {
		if s := os.Getenv("BATCH_SIZE"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Config{}, nil, errors.New("invalid BATCH_SIZE env variable")
			}
			cfg.BatchSize = n
		}
	}

	// Then the config file
	if cfg.ConfigFile != "" {
		file, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return Config{}, nil, err
		}
		cfg = merge(cfg, file)
	}

	// Then defaults
	cfg = merge(cfg, Config{
		DatabaseType: DefaultDatabaseType,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		BatchSize:    DefaultBatchSize,
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}

	return cfg, fs.Args(), nil
}

// LoadFile reads a YAML config file
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required values and enumerations
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pg":
	default:
		return fmt.Errorf("invalid database type %q (use sqlite or postgres)", c.DatabaseType)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (use text or json)", c.LogFormat)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// merge fills empty fields of c from fallback
func merge(c, fallback Config) Config {
	if c.DatabaseURL == "" {
		c.DatabaseURL = fallback.DatabaseURL
	}
	if c.DatabaseType == "" {
		c.DatabaseType = fallback.DatabaseType
	}
	if c.LogLevel == "" {
		c.LogLevel = fallback.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = fallback.LogFormat
	}
	if c.BatchSize == 0 {
		c.BatchSize = fallback.BatchSize
	}
	return c
}
