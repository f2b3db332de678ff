// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	LockBackendFile     = "file"
	LockBackendValkey   = "valkey"
	LockBackendPostgres = "postgres"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`

	Shards struct {
		Dir string `yaml:"dir"`
	} `yaml:"shards"`

	Lock LockConfig `yaml:"lock"`

	Valkey ValkeyConfig `yaml:"valkey"`

	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`

	Workers int `yaml:"workers"`

	Billing struct {
		FanoutConcurrency int `yaml:"fanout_concurrency"`
	} `yaml:"billing"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Log LogConfig `yaml:"log"`
}

type LockConfig struct {
	Backend string `yaml:"backend"`
	// AcquireTimeout bounds the wait for a tenant lock. Zero waits forever.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	// TTL is the lease of a valkey lock; it is renewed while held.
	TTL time.Duration `yaml:"ttl"`
	// Dir holds the lock files of the file backend. Defaults to the shard dir.
	Dir string `yaml:"dir"`
}

type ValkeyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LoadConfig reads a YAML file, expanding ${VAR} references from the
// environment. A .env file next to the process is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Shards.Dir == "" {
		c.Shards.Dir = "tenant_db"
	}
	if c.Lock.Backend == "" {
		c.Lock.Backend = LockBackendFile
	}
	if c.Lock.Dir == "" {
		c.Lock.Dir = c.Shards.Dir
	}
	if c.Lock.TTL == 0 {
		c.Lock.TTL = 30 * time.Second
	}
	if c.Workers == 0 {
		c.Workers = 2
	}
	if c.Billing.FanoutConcurrency == 0 {
		c.Billing.FanoutConcurrency = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations that cannot be served.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	switch c.Lock.Backend {
	case LockBackendFile:
	case LockBackendValkey:
		if !c.Valkey.Enabled || c.Valkey.Addr == "" {
			errs = append(errs, errors.New("lock backend valkey requires valkey.enabled and valkey.addr"))
		}
	case LockBackendPostgres:
		if c.Database.Driver != DriverPostgres {
			errs = append(errs, errors.New("lock backend postgres requires database.driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock backend %q", c.Lock.Backend))
	}
	if c.Lock.AcquireTimeout < 0 {
		errs = append(errs, errors.New("lock.acquire_timeout must not be negative"))
	}
	if c.Lock.TTL < 0 {
		errs = append(errs, errors.New("lock.ttl must not be negative"))
	}
	if c.Workers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if c.Billing.FanoutConcurrency < 0 {
		errs = append(errs, errors.New("billing.fanout_concurrency must not be negative"))
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, errors.New("valkey.addr is required when valkey is enabled"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
