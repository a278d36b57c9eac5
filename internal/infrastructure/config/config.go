// Package config reads the splitter's settings from an optional TOML file and
// LABFLOW_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LABFLOW_DATABASE_HOST
const EnvPrefix = "LABFLOW"

// Config is the complete splitter configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Services  ServicesConfig  `mapstructure:"services"`
	Split     SplitConfig     `mapstructure:"split"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// TelemetryConfig controls the OTLP exporters and database instrumentation
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // gRPC host:port
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"` // app.name when empty
	Insecure          bool          `mapstructure:"insecure"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	// DBLogFullSQL records bound query variables on spans
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// ServiceConfig locates one remote laboratory service
type ServiceConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
}

type ServicesConfig struct {
	Sets      ServiceConfig `mapstructure:"sets"`
	Materials ServiceConfig `mapstructure:"materials"`
	Study     ServiceConfig `mapstructure:"study"`
}

// SplitConfig controls the per-work-order split guard
type SplitConfig struct {
	GuardEnabled bool          `mapstructure:"guard_enabled"`
	GuardTTL     time.Duration `mapstructure:"guard_ttl"`
	// GuardBackend is redis or memory. A memory guard only excludes splits
	// within one process, so it serves tests and single-process runs.
	GuardBackend string        `mapstructure:"guard_backend"`
}

// defaults registers every key so that AutomaticEnv can override keys the
// config file does not mention.
var defaults = map[string]any{
	"app.name": "labflow-splitter",
	"app.env":  "development",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "labflow",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"split.guard_enabled": true,
	"split.guard_ttl":     15 * time.Minute,
	"split.guard_backend": "redis",
}

var serviceNames = []string{"sets", "materials", "study"}

func init() {
	for _, name := range serviceNames {
		defaults["services."+name+".base_url"] = ""
		defaults["services."+name+".timeout"] = 30 * time.Second
		defaults["services."+name+".page_size"] = 100
	}
}

// Load reads ./config.toml or /app/config.toml when present. Environment
// variables take precedence over the file, which takes precedence over the
// built-in defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file, which must exist. An empty
// path searches the default locations.
func LoadFile(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads the same sources as LoadFile but only validates the
// database settings, for tools that never reach the remote services.
func LoadDatabase(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	return &cfg, nil
}

// IsProduction reports whether app.env is production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	for _, name := range serviceNames {
		if err := c.Services.byName(name).validate("services." + name); err != nil {
			return err
		}
	}

	if b := c.Split.GuardBackend; b != "memory" && b != "redis" {
		return fmt.Errorf("split.guard_backend must be memory or redis, got %q", b)
	}
	if c.IsProduction() && c.Split.GuardEnabled && c.Split.GuardBackend == "memory" {
		return errors.New("split.guard_backend cannot be memory in production, concurrent split processes would not exclude each other")
	}
	if c.Split.GuardTTL < 0 {
		return errors.New("split.guard_ttl cannot be negative")
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", r)
	}
	if c.IsProduction() && c.Telemetry.DBLogFullSQL {
		return errors.New("telemetry.db_log_full_sql must be false in production, bound variables would be exported with traces")
	}
	return nil
}

// validateDatabase checks pool sizing, and in production that the
// connection is authenticated and encrypted.
func (c *Config) validateDatabase() error {
	db := c.Database
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	}
	if !c.IsProduction() {
		return nil
	}
	if db.Password == "" {
		return errors.New("database.password is required in production")
	}
	if db.SSLMode == "disable" {
		return errors.New("database.sslmode cannot be 'disable' in production")
	}
	return nil
}

func (s ServicesConfig) byName(name string) ServiceConfig {
	switch name {
	case "sets":
		return s.Sets
	case "materials":
		return s.Materials
	default:
		return s.Study
	}
}

func (s ServiceConfig) validate(key string) error {
	if s.BaseURL == "" {
		return fmt.Errorf("%s.base_url is required", key)
	}
	if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s.base_url must be an absolute URL, got %q", key, s.BaseURL)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%s.timeout cannot be negative", key)
	}
	return nil
}

// DSN returns a postgres:// URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Addr returns the host:port of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
