package config

const EnvPrefix = "INVENTORY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

const (
	EnvAppEnv         = "INVENTORY_APP_ENV"
	EnvPort           = "INVENTORY_APP_PORT"
	EnvLogLevel       = "INVENTORY_LOG_LEVEL"
	EnvAPIKey         = "INVENTORY_API_KEY"
	EnvCORSOrigins    = "INVENTORY_CORS_ALLOWED_ORIGINS"
	EnvDBDriver       = "INVENTORY_DB_DRIVER"
	EnvDBDSN          = "INVENTORY_DB_DSN"
	EnvRedisAddr      = "INVENTORY_REDIS_ADDR"
	EnvCatalogBaseURL = "INVENTORY_CATALOG_BASE_URL"
	EnvCatalogAPIKey  = "INVENTORY_CATALOG_API_KEY"
	EnvCatalogTimeout = "INVENTORY_CATALOG_TIMEOUT"
	EnvRateLimit      = "INVENTORY_PURCHASE_RATE_LIMIT"
	EnvAutoMigrate    = "INVENTORY_AUTO_MIGRATE"
)
