package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration
type Config struct {
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Matcher  Matcher  `mapstructure:"matcher"`
	Lock     Lock     `mapstructure:"lock"`
	Redis    Redis    `mapstructure:"redis"`
}

// Database holds SQLite configuration
type Database struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Logger holds logger configuration
type Logger struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Matcher holds workflow-match cache configuration. Definitions change
// infrequently, so match results are cached briefly.
type Matcher struct {
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// Lock holds per-document lock configuration
type Lock struct {
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxWait       time.Duration `mapstructure:"max_wait"`
}

// Redis holds optional Redis configuration for cross-process locking.
// When Address is empty, the in-process locker is used.
type Redis struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("DOCFLOW")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("database.path", "docflow.db")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Hour)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")

	viper.SetDefault("matcher.cache_size", 1024)
	viper.SetDefault("matcher.cache_ttl", 30*time.Second)

	viper.SetDefault("lock.ttl", 10*time.Second)
	viper.SetDefault("lock.retry_interval", 50*time.Millisecond)
	viper.SetDefault("lock.max_wait", 5*time.Second)

	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.db", 0)
}

// Validate checks configuration sanity
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Matcher.CacheSize < 0 {
		return fmt.Errorf("matcher.cache_size must not be negative")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive")
	}
	if c.Lock.MaxWait < c.Lock.RetryInterval {
		return fmt.Errorf("lock.max_wait must be at least lock.retry_interval")
	}
	return nil
}
