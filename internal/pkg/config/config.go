package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Cache and notification drivers.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"

	NotifySMTP = "smtp"
	NotifyLog  = "log"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	CORSOrigins     []string      `env:"CORS_ORIGINS,     default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`

	JWT    JWTConfig
	Auth   AuthConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Cache  CacheConfig
	SMTP   SMTPConfig
	Notify NotifyConfig
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRES_TIME,  default=30m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRES_TIME, default=168h"`
}

type AuthConfig struct {
	// RecheckFrozen makes the login guard read the frozen flag on every request.
	RecheckFrozen bool    `env:"AUTH_RECHECK_FROZEN, default=true"`
	CaptchaRate   float64 `env:"CAPTCHA_RATE,        default=0.2"`
	CaptchaBurst  int     `env:"CAPTCHA_BURST,       default=3"`
	// CodeAttempt* throttle register, password change and profile update,
	// the routes that check a submitted code.
	CodeAttemptRate  float64 `env:"CODE_ATTEMPT_RATE,   default=0.5"`
	CodeAttemptBurst int     `env:"CODE_ATTEMPT_BURST,  default=5"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=meeting_room_booking"`
	AppName  string        `env:"MONGO_APPNAME, default=booking-api"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT,  default=5s"`
}

type CacheConfig struct {
	Driver string `env:"CACHE_DRIVER, default=redis"`
}

type SMTPConfig struct {
	Host     string        `env:"SMTP_HOST"`
	Port     int           `env:"SMTP_PORT,     default=587"`
	Username string        `env:"SMTP_USER"`
	Password string        `env:"SMTP_PASS"`
	From     string        `env:"SMTP_FROM"`
	TLSMode  string        `env:"SMTP_TLS,      default=auto"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT,  default=10s"`
}

type NotifyConfig struct {
	Driver  string `env:"NOTIFY_DRIVER,  default=log"`
	Workers int    `env:"NOTIFY_WORKERS, default=4"`
}

// Load reads a .env file when present, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return loadWith(ctx, envconfig.OsLookuper())
}

func loadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	} else if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		errs = append(errs, fmt.Errorf("access token lifetime (%s) must be shorter than refresh token lifetime (%s)", c.JWT.AccessTTL, c.JWT.RefreshTTL))
	}

	switch c.Cache.Driver {
	case CacheRedis, CacheMemory:
	default:
		errs = append(errs, fmt.Errorf("CACHE_DRIVER %q: want %s or %s", c.Cache.Driver, CacheRedis, CacheMemory))
	}

	switch c.Notify.Driver {
	case NotifyLog:
		if c.IsProduction() {
			errs = append(errs, errors.New("NOTIFY_DRIVER=log would write verification codes to the log; use smtp in production"))
		}
	case NotifySMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			errs = append(errs, errors.New("SMTP_HOST and SMTP_FROM are required when NOTIFY_DRIVER=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_DRIVER %q: want %s or %s", c.Notify.Driver, NotifySMTP, NotifyLog))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
