package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Vault     VaultConfig
	Fetcher   FetcherConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Archive   ArchiveConfig
	HTTP      HTTPConfig
	Vendors   []VendorSchemaConfig
}

// VendorSchemaConfig declares one vendor integration in config.toml.
// It mirrors the domain schema: credential fields with aliases and
// sensitivity, feed column mapping, encoding and category.
type VendorSchemaConfig struct {
	Code      string            `mapstructure:"code"`
	Category  string            `mapstructure:"category"`
	Encoding  string            `mapstructure:"encoding"`
	HasHeader bool              `mapstructure:"has_header"`
	Columns   FeedColumnsConfig `mapstructure:"columns"`
	Fields    []FieldSpecConfig `mapstructure:"fields"`
}

// FeedColumnsConfig maps feed header names onto catalog semantics
type FeedColumnsConfig struct {
	Key         string `mapstructure:"key"`
	Price       string `mapstructure:"price"`
	Quantity    string `mapstructure:"quantity"`
	Description string `mapstructure:"description"`
}

// FieldSpecConfig declares one credential field of a vendor
type FieldSpecConfig struct {
	Name      string   `mapstructure:"name"`
	Aliases   []string `mapstructure:"aliases"`
	Sensitive bool     `mapstructure:"sensitive"`
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// VaultConfig holds credential vault encryption settings
type VaultConfig struct {
	MasterKey string // master secret for field encryption
	KDFSalt   string // scrypt salt, fixed per deployment
}

// FetcherConfig holds feed fetcher settings
type FetcherConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	MaxFeedBytes int64
}

// SyncConfig holds sync orchestration settings
type SyncConfig struct {
	RunTimeout     time.Duration // a run past this is failed with a timeout cause
	MaxRunDuration time.Duration // a run past this is considered stuck
	HistoryLimit   int
}

// SchedulerConfig holds scheduled trigger settings
type SchedulerConfig struct {
	Enabled bool
}

// ArchiveConfig holds raw feed archive settings (S3-compatible)
type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodySize    int64
	TrustedProxies []string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Vault: VaultConfig{
			MasterKey: v.GetString("vault.master_key"),
			KDFSalt:   v.GetString("vault.kdf_salt"),
		},
		Fetcher: FetcherConfig{
			Timeout:      v.GetDuration("fetcher.timeout"),
			RetryMax:     v.GetInt("fetcher.retry_max"),
			RetryWaitMin: v.GetDuration("fetcher.retry_wait_min"),
			RetryWaitMax: v.GetDuration("fetcher.retry_wait_max"),
			MaxFeedBytes: v.GetInt64("fetcher.max_feed_bytes"),
		},
		Sync: SyncConfig{
			RunTimeout:     v.GetDuration("sync.run_timeout"),
			MaxRunDuration: v.GetDuration("sync.max_run_duration"),
			HistoryLimit:   v.GetInt("sync.history_limit"),
		},
		Scheduler: SchedulerConfig{
			Enabled: v.GetBool("scheduler.enabled"),
		},
		Archive: ArchiveConfig{
			Enabled:         v.GetBool("archive.enabled"),
			Endpoint:        v.GetString("archive.endpoint"),
			Region:          v.GetString("archive.region"),
			Bucket:          v.GetString("archive.bucket"),
			AccessKeyID:     v.GetString("archive.access_key_id"),
			SecretAccessKey: v.GetString("archive.secret_access_key"),
			ForcePathStyle:  v.GetBool("archive.force_path_style"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
	}

	if err := v.UnmarshalKey("vendors", &cfg.Vendors); err != nil {
		return nil, fmt.Errorf("error parsing vendor declarations: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "vendorsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "vendorsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Fetcher.Timeout == 0 {
		cfg.Fetcher.Timeout = 2 * time.Minute
	}
	if cfg.Fetcher.RetryMax == 0 {
		cfg.Fetcher.RetryMax = 3
	}
	if cfg.Fetcher.RetryWaitMin == 0 {
		cfg.Fetcher.RetryWaitMin = 1 * time.Second
	}
	if cfg.Fetcher.RetryWaitMax == 0 {
		cfg.Fetcher.RetryWaitMax = 30 * time.Second
	}
	if cfg.Fetcher.MaxFeedBytes == 0 {
		cfg.Fetcher.MaxFeedBytes = 100 << 20 // 100MB
	}
	if cfg.Sync.RunTimeout == 0 {
		cfg.Sync.RunTimeout = 10 * time.Minute
	}
	if cfg.Sync.MaxRunDuration == 0 {
		cfg.Sync.MaxRunDuration = 30 * time.Minute
	}
	if cfg.Sync.HistoryLimit == 0 {
		cfg.Sync.HistoryLimit = 50
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB; the API carries config, not feeds
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.MaxRunDuration < c.Sync.RunTimeout {
		return fmt.Errorf("sync.max_run_duration (%s) cannot be shorter than sync.run_timeout (%s)",
			c.Sync.MaxRunDuration, c.Sync.RunTimeout)
	}

	if c.App.Env == "production" {
		if c.Vault.MasterKey == "" {
			return fmt.Errorf("vault.master_key is required in production")
		}
		if len(c.Vault.MasterKey) < 32 {
			return fmt.Errorf("vault.master_key must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Archive.Enabled && (c.Archive.Bucket == "" || c.Archive.Region == "") {
			return fmt.Errorf("archive.bucket and archive.region are required when the feed archive is enabled")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
