package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Cookie        CookieConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Authz         AuthzConfig
	FeatureFlags  FeatureFlagsConfig
	Cron          CronConfig
	Audit         AuditConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.JWT.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.TrustedProxyPrefixes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"BIZHUB_APP_ENV" required:"true"`
	Port            string        `envconfig:"BIZHUB_APP_PORT" required:"true"`
	LogLevel        string        `envconfig:"BIZHUB_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"BIZHUB_LOG_WARN_STACK" default:"false"`
	ReadTimeout     time.Duration `envconfig:"BIZHUB_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"BIZHUB_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"BIZHUB_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
	CORSOrigins     []string      `envconfig:"BIZHUB_CORS_ORIGINS" default:"http://localhost:5173"`
	// TrustedProxies lists the addresses or CIDR ranges whose
	// X-Forwarded-For entries are believed. Empty trusts no proxy.
	TrustedProxies []string `envconfig:"BIZHUB_TRUSTED_PROXIES"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single host prefix.
func (a AppConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(a.TrustedProxies))
	for _, raw := range a.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", EnvTrustedProxies, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTrustedProxies, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BIZHUB_DB_DSN"`

	Host     string `envconfig:"BIZHUB_DB_HOST"`
	Port     int    `envconfig:"BIZHUB_DB_PORT" default:"5432"`
	User     string `envconfig:"BIZHUB_DB_USER"`
	Password string `envconfig:"BIZHUB_DB_PASSWORD"`
	Name     string `envconfig:"BIZHUB_DB_NAME"`
	SSLMode  string `envconfig:"BIZHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BIZHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIZHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIZHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIZHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BIZHUB_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BIZHUB_REDIS_URL"`
	Address      string        `envconfig:"BIZHUB_REDIS_ADDR"`
	Password     string        `envconfig:"BIZHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"BIZHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BIZHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BIZHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BIZHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BIZHUB_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"BIZHUB_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// JWTConfig holds signing material for both token kinds. Access and refresh
// tokens never share a secret.
type JWTConfig struct {
	AccessSecret           string `envconfig:"BIZHUB_JWT_ACCESS_SECRET" required:"true"`
	RefreshSecret          string `envconfig:"BIZHUB_JWT_REFRESH_SECRET" required:"true"`
	Issuer                 string `envconfig:"BIZHUB_JWT_ISSUER" default:"bizhub"`
	ExpirationMinutes      int    `envconfig:"BIZHUB_JWT_EXPIRATION_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"BIZHUB_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
	RefreshTokenPepper     string `envconfig:"BIZHUB_REFRESH_TOKEN_PEPPER"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// HashKey returns the key used to hash refresh tokens at rest.
func (j JWTConfig) HashKey() string {
	if strings.TrimSpace(j.RefreshTokenPepper) != "" {
		return j.RefreshTokenPepper
	}
	return j.RefreshSecret
}

func (j JWTConfig) validate() error {
	if j.AccessSecret == j.RefreshSecret {
		return fmt.Errorf("%s and %s must differ", EnvJWTAccessSecret, EnvJWTRefreshSecret)
	}
	if j.AccessTokenTTL() <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTExpMins)
	}
	if j.RefreshTokenTTL() <= j.AccessTokenTTL() {
		return fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", j.RefreshTokenTTL(), j.AccessTokenTTL())
	}
	return nil
}

// CookieConfig controls how the refresh token cookie is scoped.
type CookieConfig struct {
	Name   string `envconfig:"BIZHUB_REFRESH_COOKIE_NAME" default:"bizhub_refresh"`
	Path   string `envconfig:"BIZHUB_REFRESH_COOKIE_PATH" default:"/api/v1/auth"`
	Domain string `envconfig:"BIZHUB_REFRESH_COOKIE_DOMAIN"`
	Secure bool   `envconfig:"BIZHUB_REFRESH_COOKIE_SECURE" default:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BIZHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BIZHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BIZHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BIZHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BIZHUB_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"BIZHUB_PASSWORD_MIN_LENGTH" default:"8"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"BIZHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"BIZHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"BIZHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RefreshWindow   time.Duration `envconfig:"BIZHUB_AUTH_RATE_LIMIT_REFRESH_WINDOW" default:"1m"`
	RefreshIPLimit  int           `envconfig:"BIZHUB_AUTH_RATE_LIMIT_REFRESH_IP_LIMIT" default:"60"`
}

type AuthzConfig struct {
	ScopeCacheTTL time.Duration `envconfig:"BIZHUB_SCOPE_CACHE_TTL" default:"60s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BIZHUB_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"BIZHUB_CRON_INTERVAL" default:"1h"`
	RefreshPurgeGrace time.Duration `envconfig:"BIZHUB_CRON_REFRESH_PURGE_GRACE" default:"24h"`
	AuditRetention    time.Duration `envconfig:"BIZHUB_CRON_AUDIT_RETENTION" default:"2160h"`
}

type AuditConfig struct {
	BufferSize int `envconfig:"BIZHUB_AUDIT_BUFFER_SIZE" default:"256"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
