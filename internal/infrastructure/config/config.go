package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// EnvPrefix prefixes every environment override, e.g. LEDGER_DATABASE_PASSWORD
const EnvPrefix = "LEDGER"

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// DatabaseConfig selects the driver and sizes the pool. Port, user and
// database name default per driver.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"` // file path for sqlite
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// RedisConfig points at the stock snapshot cache
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes     int64         `mapstructure:"max_body_bytes"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// StorageConfig locates the S3 compatible bucket holding batch images
type StorageConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Endpoint       string        `mapstructure:"endpoint"`
	Region         string        `mapstructure:"region"`
	Bucket         string        `mapstructure:"bucket"`
	AccessKeyID    string        `mapstructure:"access_key_id"`
	SecretKey      string        `mapstructure:"secret_key"`
	UsePathStyle   bool          `mapstructure:"use_path_style"`
	AutoCreate     bool          `mapstructure:"auto_create"`
	DeleteTimeout  time.Duration `mapstructure:"delete_timeout"`
	PresignExpires time.Duration `mapstructure:"presign_expires"`
}

// TelemetryConfig configures the OTLP exporters and database statement logging
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"` // defaults to app.name
	Insecure          bool          `mapstructure:"insecure"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// LedgerConfig tunes the stock ledger itself
type LedgerConfig struct {
	StockCacheTTL      time.Duration `mapstructure:"stock_cache_ttl"` // 0 disables the cache
	TransactionTimeout time.Duration `mapstructure:"transaction_timeout"`

	// ReconcileInterval schedules the background sweep, 0 disables it
	ReconcileInterval   time.Duration `mapstructure:"reconcile_interval"`
	ReconcileWorkers    int           `mapstructure:"reconcile_workers"`
	ReconcileJobTimeout time.Duration `mapstructure:"reconcile_job_timeout"`
	ReconcileRetries    int           `mapstructure:"reconcile_retries"`
	ReconcileRetryDelay time.Duration `mapstructure:"reconcile_retry_delay"`
}

// defaults registers every key, so AutomaticEnv can override each of them.
// Zero values mark keys whose default depends on another setting.
var defaults = map[string]any{
	"app.name": "stock-ledger",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             DriverPostgres,
	"database.host":               "localhost",
	"database.port":               0,
	"database.user":               "",
	"database.password":           "",
	"database.dbname":             "",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     time.Minute,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_bytes":   1 << 20,
	// no origin is allowed unless configured
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"storage.enabled":         false,
	"storage.endpoint":        "",
	"storage.region":          "us-east-1",
	"storage.bucket":          "warehouse-entry-images",
	"storage.access_key_id":   "",
	"storage.secret_key":      "",
	"storage.use_path_style":  false,
	"storage.auto_create":     false,
	"storage.delete_timeout":  10 * time.Second,
	"storage.presign_expires": 15 * time.Minute,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"ledger.stock_cache_ttl":       time.Duration(0),
	"ledger.transaction_timeout":   30 * time.Second,
	"ledger.reconcile_interval":    time.Duration(0),
	"ledger.reconcile_workers":     2,
	"ledger.reconcile_job_timeout": time.Minute,
	"ledger.reconcile_retries":     3,
	"ledger.reconcile_retry_delay": 30 * time.Second,
}

// Load reads config.toml from the working directory, ./backend or /app, then
// applies LEDGER_* environment overrides on top of the built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.derive()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// derive fills the settings whose defaults depend on other settings
func (c *Config) derive() {
	db := &c.Database
	db.Driver = strings.ToLower(db.Driver)

	port, user, name := 5432, "postgres", "ledger"
	switch db.Driver {
	case DriverMySQL:
		port, user = 3306, "root"
	case DriverSQLite:
		name = "ledger.db"
	}
	if db.Port == 0 {
		db.Port = port
	}
	if db.User == "" {
		db.User = user
	}
	if db.DBName == "" {
		db.DBName = name
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.App.Name
	}
}

// validate reports every invalid setting at once
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	switch db.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		check(false, "database.driver must be one of postgres, mysql, sqlite, got %q", db.Driver)
	}
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)

	check(c.Ledger.StockCacheTTL >= 0, "ledger.stock_cache_ttl cannot be negative")
	check(c.Ledger.ReconcileInterval >= 0, "ledger.reconcile_interval cannot be negative")
	check(c.Ledger.ReconcileWorkers >= 0, "ledger.reconcile_workers cannot be negative")
	check(!c.Storage.Enabled || c.Storage.Bucket != "", "storage.bucket is required when storage is enabled")
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)

	if c.App.Env == "production" {
		// sqlite has no row level locks for the deduction transactions
		check(db.Driver != DriverSQLite, "database.driver sqlite cannot be used in production")
		check(db.Password != "", "database.password is required in production")
		check(db.Driver != DriverPostgres || db.SSLMode != "disable", "database.sslmode cannot be 'disable' in production")
		for _, origin := range c.HTTP.CORSAllowOrigins {
			check(origin != "*", "http.cors_allow_origins cannot be '*' in production")
		}
		check(!c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}
	return errors.Join(errs...)
}

// DSN returns the driver specific connection string with credentials escaped
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
		mc.DBName = d.DBName
		mc.ParseTime = true
		mc.MultiStatements = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	case DriverSQLite:
		return d.DBName
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
