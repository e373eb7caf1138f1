package config

const (
	EnvPrefix = "BIZHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "BIZHUB_APP_ENV"
	EnvPort           = "BIZHUB_APP_PORT"
	EnvTrustedProxies = "BIZHUB_TRUSTED_PROXIES"

	EnvDBDSN  = "BIZHUB_DB_DSN"
	EnvDBHost = "BIZHUB_DB_HOST"
	EnvDBUser = "BIZHUB_DB_USER"
	EnvDBName = "BIZHUB_DB_NAME"

	EnvRedisURL = "BIZHUB_REDIS_URL"

	EnvJWTAccessSecret        = "BIZHUB_JWT_ACCESS_SECRET"
	EnvJWTRefreshSecret       = "BIZHUB_JWT_REFRESH_SECRET"
	EnvJWTIssuer              = "BIZHUB_JWT_ISSUER"
	EnvJWTExpMins             = "BIZHUB_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BIZHUB_REFRESH_TOKEN_TTL_MINUTES"
	EnvRefreshTokenPepper     = "BIZHUB_REFRESH_TOKEN_PEPPER"
	EnvRefreshCookieSecure    = "BIZHUB_REFRESH_COOKIE_SECURE"
	EnvScopeCacheTTL          = "BIZHUB_SCOPE_CACHE_TTL"
	EnvCronRefreshPurgeGrace  = "BIZHUB_CRON_REFRESH_PURGE_GRACE"

	// EnvSeedAdminPassword carries the initial owner password for
	// migrate -cmd=seed-admin so it never appears in shell history.
	EnvSeedAdminPassword = "BIZHUB_SEED_ADMIN_PASSWORD"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
