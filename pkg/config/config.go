package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ReportsBackendMemory = "memory"
	ReportsBackendRedis  = "redis"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Orders       OrdersConfig
	Reports      ReportsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DriverPostgres, DriverSQLite, c.DB.Driver)
	}
	switch c.Reports.Backend {
	case ReportsBackendMemory:
	case ReportsBackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s or %s is required when %s=%s", EnvRedisURL, EnvRedisAddr, EnvReportsBackend, ReportsBackendRedis)
		}
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvReportsBackend, ReportsBackendMemory, ReportsBackendRedis, c.Reports.Backend)
	}
	if c.Reports.TTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvReportsTTL)
	}
	if c.Orders.LockTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersLockTimeout)
	}
	if c.Orders.LowStockThreshold < 0 {
		return fmt.Errorf("%s must not be negative", EnvOrdersLowStockThreshold)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"SUPPLYCHAIN_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"SUPPLYCHAIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUPPLYCHAIN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SUPPLYCHAIN_DB_DSN"`
	Driver string `envconfig:"SUPPLYCHAIN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUPPLYCHAIN_DB_HOST"`
	LegacyPort     int    `envconfig:"SUPPLYCHAIN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUPPLYCHAIN_DB_USER"`
	LegacyPassword string `envconfig:"SUPPLYCHAIN_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUPPLYCHAIN_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUPPLYCHAIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUPPLYCHAIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUPPLYCHAIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUPPLYCHAIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUPPLYCHAIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the embedded driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SUPPLYCHAIN_REDIS_URL"`
	Address      string        `envconfig:"SUPPLYCHAIN_REDIS_ADDR"`
	Password     string        `envconfig:"SUPPLYCHAIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUPPLYCHAIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUPPLYCHAIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUPPLYCHAIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUPPLYCHAIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUPPLYCHAIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUPPLYCHAIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OrdersConfig tunes the order engine.
type OrdersConfig struct {
	// LockTimeout bounds how long a unit waits for a product stock lock.
	LockTimeout       time.Duration `envconfig:"SUPPLYCHAIN_ORDERS_LOCK_TIMEOUT" default:"5s"`
	LowStockThreshold int           `envconfig:"SUPPLYCHAIN_ORDERS_LOW_STOCK_THRESHOLD" default:"10"`
}

type ReportsConfig struct {
	Backend       string        `envconfig:"SUPPLYCHAIN_REPORTS_BACKEND" default:"memory"`
	TTL           time.Duration `envconfig:"SUPPLYCHAIN_REPORTS_TTL" default:"24h"`
	SweepInterval time.Duration `envconfig:"SUPPLYCHAIN_REPORTS_SWEEP_INTERVAL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUPPLYCHAIN_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DriverSQLite)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
