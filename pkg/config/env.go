package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "SUPPLYCHAIN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "SUPPLYCHAIN_APP_ENV"
	EnvLogLevel     = "SUPPLYCHAIN_LOG_LEVEL"
	EnvLogWarnStack = "SUPPLYCHAIN_LOG_WARN_STACK"

	EnvDBDSN      = "SUPPLYCHAIN_DB_DSN"
	EnvDBDriver   = "SUPPLYCHAIN_DB_DRIVER"
	EnvDBHost     = "SUPPLYCHAIN_DB_HOST"
	EnvDBPort     = "SUPPLYCHAIN_DB_PORT"
	EnvDBUser     = "SUPPLYCHAIN_DB_USER"
	EnvDBPassword = "SUPPLYCHAIN_DB_PASSWORD"
	EnvDBName     = "SUPPLYCHAIN_DB_NAME"

	EnvRedisURL  = "SUPPLYCHAIN_REDIS_URL"
	EnvRedisAddr = "SUPPLYCHAIN_REDIS_ADDR"

	EnvOrdersLockTimeout       = "SUPPLYCHAIN_ORDERS_LOCK_TIMEOUT"
	EnvOrdersLowStockThreshold = "SUPPLYCHAIN_ORDERS_LOW_STOCK_THRESHOLD"

	EnvReportsBackend       = "SUPPLYCHAIN_REPORTS_BACKEND"
	EnvReportsTTL           = "SUPPLYCHAIN_REPORTS_TTL"
	EnvReportsSweepInterval = "SUPPLYCHAIN_REPORTS_SWEEP_INTERVAL"

	EnvAutoMigrate = "SUPPLYCHAIN_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
