package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Log       LogConfig
	JWT       JWTConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Worker    WorkerConfig
	Receipt   ReceiptConfig
	SMTP      SMTPConfig
	Printer   PrinterConfig
	Payment   PaymentConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // sqlite, postgres
	Path            string // sqlite file path
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
	AutoMigrate     bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// CacheConfig selects the product-list cache backend
type CacheConfig struct {
	Driver string // memory, redis
	TTL    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// WorkerConfig holds the receipt worker pool settings
type WorkerConfig struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	RetryBackoff   time.Duration
	JobTimeout     time.Duration
	IdempotencyTTL time.Duration
}

// ReceiptConfig holds the receipt issuer identity and rendering options
type ReceiptConfig struct {
	IssuerName     string
	Tagline        string
	Address        string
	Email          string
	Phone          string
	Website        string
	CurrencySymbol string
	DefaultCashier string
	Timezone       string
	PDFEnabled     bool
	ChromeURL      string // remote DevTools endpoint, empty = launch locally
	RenderTimeout  time.Duration
}

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      string // mandatory, opportunistic, none
	Timeout  time.Duration
}

// PrinterConfig holds the IPP/CUPS receipt printer settings
type PrinterConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	Printer  string
	UseTLS   bool
}

// PaymentConfig holds the mobile money collaborator settings
type PaymentConfig struct {
	Enabled             bool
	BaseURL             string
	APIKey              string
	RequestTimeout      time.Duration
	PollInterval        time.Duration
	ConfirmationTimeout time.Duration
}

// StorageConfig holds the receipt archive settings
type StorageConfig struct {
	Driver       string // none, local, s3
	LocalPath    string
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	MetricsEnabled    bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with POS_ prefix (e.g., POS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/stocklink")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
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
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Cache: CacheConfig{
			Driver: v.GetString("cache.driver"),
			TTL:    v.GetDuration("cache.ttl"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Worker: WorkerConfig{
			Workers:        v.GetInt("worker.workers"),
			QueueSize:      v.GetInt("worker.queue_size"),
			MaxAttempts:    v.GetInt("worker.max_attempts"),
			RetryBackoff:   v.GetDuration("worker.retry_backoff"),
			JobTimeout:     v.GetDuration("worker.job_timeout"),
			IdempotencyTTL: v.GetDuration("worker.idempotency_ttl"),
		},
		Receipt: ReceiptConfig{
			IssuerName:     v.GetString("receipt.issuer_name"),
			Tagline:        v.GetString("receipt.tagline"),
			Address:        v.GetString("receipt.address"),
			Email:          v.GetString("receipt.email"),
			Phone:          v.GetString("receipt.phone"),
			Website:        v.GetString("receipt.website"),
			CurrencySymbol: v.GetString("receipt.currency_symbol"),
			DefaultCashier: v.GetString("receipt.default_cashier"),
			Timezone:       v.GetString("receipt.timezone"),
			PDFEnabled:     v.GetBool("receipt.pdf_enabled"),
			ChromeURL:      v.GetString("receipt.chrome_url"),
			RenderTimeout:  v.GetDuration("receipt.render_timeout"),
		},
		SMTP: SMTPConfig{
			Enabled:  v.GetBool("smtp.enabled"),
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			FromName: v.GetString("smtp.from_name"),
			TLS:      v.GetString("smtp.tls"),
			Timeout:  v.GetDuration("smtp.timeout"),
		},
		Printer: PrinterConfig{
			Enabled:  v.GetBool("printer.enabled"),
			Host:     v.GetString("printer.host"),
			Port:     v.GetInt("printer.port"),
			Username: v.GetString("printer.username"),
			Password: v.GetString("printer.password"),
			Printer:  v.GetString("printer.printer"),
			UseTLS:   v.GetBool("printer.use_tls"),
		},
		Payment: PaymentConfig{
			Enabled:             v.GetBool("payment.enabled"),
			BaseURL:             v.GetString("payment.base_url"),
			APIKey:              v.GetString("payment.api_key"),
			RequestTimeout:      v.GetDuration("payment.request_timeout"),
			PollInterval:        v.GetDuration("payment.poll_interval"),
			ConfirmationTimeout: v.GetDuration("payment.confirmation_timeout"),
		},
		Storage: StorageConfig{
			Driver:       v.GetString("storage.driver"),
			LocalPath:    v.GetString("storage.local_path"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	if !v.IsSet("database.auto_migrate") {
		cfg.Database.AutoMigrate = true
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
		cfg.App.Name = "stocklink-pos"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "5000"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Mobile money checkouts wait on the customer's phone before commit
		cfg.HTTP.WriteTimeout = 2 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "stock.db"
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
		cfg.Database.DBName = "stocklink"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		if cfg.Database.Driver == "sqlite" {
			cfg.Database.MaxOpenConns = 1
		} else {
			cfg.Database.MaxOpenConns = 25
		}
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = min(5, cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
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

	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "stocklink-pos"
	}

	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 60 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Worker.Workers == 0 {
		cfg.Worker.Workers = 2
	}
	if cfg.Worker.QueueSize == 0 {
		cfg.Worker.QueueSize = 256
	}
	if cfg.Worker.MaxAttempts == 0 {
		cfg.Worker.MaxAttempts = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 2 * time.Second
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = time.Minute
	}
	if cfg.Worker.IdempotencyTTL == 0 {
		cfg.Worker.IdempotencyTTL = 24 * time.Hour
	}

	if cfg.Receipt.IssuerName == "" {
		cfg.Receipt.IssuerName = "WELT TALLIS GROUP"
	}
	if cfg.Receipt.Tagline == "" {
		cfg.Receipt.Tagline = "Where Creativity Meets Innovation"
	}
	if cfg.Receipt.Address == "" {
		cfg.Receipt.Address = "Nairobi, Kenya"
	}
	if cfg.Receipt.Email == "" {
		cfg.Receipt.Email = "infowelttallis@gmail.com"
	}
	if cfg.Receipt.Phone == "" {
		cfg.Receipt.Phone = "+254740045355"
	}
	if cfg.Receipt.Website == "" {
		cfg.Receipt.Website = "www.welt-tallis-group.co.ke"
	}
	if cfg.Receipt.CurrencySymbol == "" {
		cfg.Receipt.CurrencySymbol = "Ksh"
	}
	if cfg.Receipt.DefaultCashier == "" {
		cfg.Receipt.DefaultCashier = "Welt Admin"
	}
	if cfg.Receipt.Timezone == "" {
		cfg.Receipt.Timezone = "Africa/Nairobi"
	}
	if cfg.Receipt.RenderTimeout == 0 {
		cfg.Receipt.RenderTimeout = 30 * time.Second
	}

	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = "Welt Tallis POS"
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}
	if cfg.SMTP.TLS == "" {
		cfg.SMTP.TLS = "mandatory"
	}
	if cfg.SMTP.Timeout == 0 {
		cfg.SMTP.Timeout = 30 * time.Second
	}

	if cfg.Printer.Host == "" {
		cfg.Printer.Host = "localhost"
	}
	if cfg.Printer.Port == 0 {
		cfg.Printer.Port = 631
	}

	if cfg.Payment.RequestTimeout == 0 {
		cfg.Payment.RequestTimeout = 15 * time.Second
	}
	if cfg.Payment.PollInterval == 0 {
		cfg.Payment.PollInterval = 3 * time.Second
	}
	if cfg.Payment.ConfirmationTimeout == 0 {
		cfg.Payment.ConfirmationTimeout = 90 * time.Second
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "none"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "data/receipts"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.driver must be memory or redis, got %q", c.Cache.Driver)
	}

	switch c.Storage.Driver {
	case "none", "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be none, local or s3, got %q", c.Storage.Driver)
	}

	switch c.SMTP.TLS {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("smtp.tls must be mandatory, opportunistic or none, got %q", c.SMTP.TLS)
	}
	if c.SMTP.Enabled && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from or smtp.username is required when smtp is enabled")
	}

	if c.Printer.Enabled && c.Printer.Printer == "" {
		return fmt.Errorf("printer.printer is required when printing is enabled")
	}

	if c.Payment.Enabled {
		if _, err := url.ParseRequestURI(c.Payment.BaseURL); err != nil {
			return fmt.Errorf("payment.base_url is invalid: %w", err)
		}
	}

	if c.Worker.Workers < 1 || c.Worker.QueueSize < 1 {
		return fmt.Errorf("worker.workers and worker.queue_size must be positive")
	}

	if _, err := time.LoadLocation(c.Receipt.Timezone); err != nil {
		return fmt.Errorf("receipt.timezone is invalid: %w", err)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path + "?_busy_timeout=5000&_foreign_keys=on"
	}
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
