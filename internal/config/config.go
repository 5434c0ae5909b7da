package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the file
const (
	EnvJWTSecret        = "BUCKETLIST_JWT_SECRET"
	EnvDatabasePassword = "BUCKETLIST_DATABASE_PASSWORD"
	EnvDatabaseDSN      = "BUCKETLIST_DATABASE_DSN"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const reloadDebounce = 100 * time.Millisecond

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	GraphQL  GraphQLConfig  `yaml:"graphql"`
	Push     PushConfig     `yaml:"push"`
	Health   HealthConfig   `yaml:"health"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AWSConfig holds the S3 settings for uploads
type AWSConfig struct {
	Region        string        `yaml:"region"`
	S3Bucket      string        `yaml:"s3_bucket"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Endpoint      string        `yaml:"endpoint"`
	UsePathStyle  bool          `yaml:"use_path_style"`
	PublicBaseURL string        `yaml:"public_base_url"`
	UploadExpiry  time.Duration `yaml:"upload_expiry"`
}

// Enabled reports whether uploads are configured
func (c AWSConfig) Enabled() bool {
	return c.S3Bucket != ""
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GraphQLConfig holds execution limits and transport options
type GraphQLConfig struct {
	Playground             bool          `yaml:"playground"`
	MaxDepth               int           `yaml:"max_depth"`
	MaxParallelism         int           `yaml:"max_parallelism"`
	SubscriptionBuffer     int           `yaml:"subscription_buffer"`
	MaxSocketSubscriptions int           `yaml:"max_socket_subscriptions"`
	InitTimeout            time.Duration `yaml:"init_timeout"`
}

// PushConfig holds APNs credentials; push is disabled unless Enabled is set
type PushConfig struct {
	Enabled      bool   `yaml:"enabled"`
	KeyFile      string `yaml:"key_file"`
	KeyID        string `yaml:"key_id"`
	TeamID       string `yaml:"team_id"`
	CertFile     string `yaml:"cert_file"`
	CertPassword string `yaml:"cert_password"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
}

// HealthConfig holds the health check schedule
type HealthConfig struct {
	Schedule string `yaml:"schedule"`
}

// Default returns a configuration for local development on SQLite
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  DriverSQLite,
			Path:    "data/bucketlist.db",
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "bucketlist",
			SSLMode: "disable",
		},
		AWS: AWSConfig{
			Region:       "us-east-1",
			UploadExpiry: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		GraphQL: GraphQLConfig{
			Playground:             true,
			MaxDepth:               12,
			MaxParallelism:         10,
			SubscriptionBuffer:     16,
			MaxSocketSubscriptions: 32,
			InitTimeout:            10 * time.Second,
		},
		Health: HealthConfig{
			Schedule: "@every 30s",
		},
	}
}

// Load reads configuration from a YAML file over the defaults and applies env overrides.
// A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if val := strings.TrimSpace(os.Getenv(EnvJWTSecret)); val != "" {
		c.JWT.Secret = val
	}
	if val := os.Getenv(EnvDatabasePassword); val != "" {
		c.Database.Password = val
	}
	if val := strings.TrimSpace(os.Getenv(EnvDatabaseDSN)); val != "" {
		c.Database.URL = val
	}
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, fmt.Errorf("jwt.secret is required (or set %s)", EnvJWTSecret))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("database.host or database.url is required for postgres"))
		}
	case DriverSQLite:
		if c.Database.Path == "" && c.Database.URL == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be %s or %s", c.Database.Driver, DriverPostgres, DriverSQLite))
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}

	if c.Push.Enabled {
		if c.Push.Topic == "" {
			errs = append(errs, errors.New("push.topic is required when push is enabled"))
		}
		if c.Push.KeyFile == "" && c.Push.CertFile == "" {
			errs = append(errs, errors.New("push.key_file or push.cert_file is required when push is enabled"))
		}
	}

	if c.Health.Schedule == "" {
		errs = append(errs, errors.New("health.schedule is required"))
	}

	return errors.Join(errs...)
}

// DSN returns the database connection string for the configured driver
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Watch reloads the file at path whenever it changes and passes each valid
// configuration to onChange. Invalid files are logged and skipped.
// It blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	// editors replace files by rename, so watch the directory
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := Load(abs)
			if err != nil {
				log.Warn().Err(err).Str("path", abs).Msg("Ignoring invalid config change")
				continue
			}
			log.Info().Str("path", abs).Msg("Config reloaded")
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Config watcher error")
		}
	}
}
