package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Payments     PaymentsConfig
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
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BACKSTAGE_APP_ENV" required:"true"`
	Port         string   `envconfig:"BACKSTAGE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BACKSTAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BACKSTAGE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BACKSTAGE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BACKSTAGE_DB_DSN"`

	Host     string `envconfig:"BACKSTAGE_DB_HOST"`
	Port     int    `envconfig:"BACKSTAGE_DB_PORT" default:"5432"`
	User     string `envconfig:"BACKSTAGE_DB_USER"`
	Password string `envconfig:"BACKSTAGE_DB_PASSWORD"`
	Name     string `envconfig:"BACKSTAGE_DB_NAME"`
	SSLMode  string `envconfig:"BACKSTAGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BACKSTAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BACKSTAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BACKSTAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BACKSTAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BACKSTAGE_REDIS_URL" required:"true"`
	Password     string        `envconfig:"BACKSTAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BACKSTAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BACKSTAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BACKSTAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BACKSTAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BACKSTAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BACKSTAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BACKSTAGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BACKSTAGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BACKSTAGE_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"BACKSTAGE_SESSION_TTL_MINUTES" default:"1440"`
}

// SessionTTL returns the server-side session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BACKSTAGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BACKSTAGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BACKSTAGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BACKSTAGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BACKSTAGE_ARGON_KEY_LEN" default:"32"`
}

// PaymentsConfig carries the hosted payment provider settings. The exchange
// rate converts catalog prices into the display currency before they are
// expressed in minor units on the payment page.
type PaymentsConfig struct {
	APIKey        string  `envconfig:"BACKSTAGE_STRIPE_API_KEY"`
	WebhookSecret string  `envconfig:"BACKSTAGE_STRIPE_WEBHOOK_SECRET"`
	Env           string  `envconfig:"BACKSTAGE_STRIPE_ENV" default:"test"`
	BaseURL       string  `envconfig:"BACKSTAGE_PUBLIC_BASE_URL"`
	ExchangeRate  float64 `envconfig:"BACKSTAGE_EXCHANGE_RATE" default:"24.75"`
	Currency      string  `envconfig:"BACKSTAGE_DISPLAY_CURRENCY" default:"hnl"`
}

// Environment returns the normalized provider environment (test/live).
func (p PaymentsConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (p PaymentsConfig) validate() error {
	if p.ExchangeRate <= 0 {
		return fmt.Errorf("%s must be positive", EnvExchangeRate)
	}
	if p.BaseURL != "" && !strings.HasPrefix(p.BaseURL, "http") {
		return fmt.Errorf("%s must be an absolute URL", EnvBaseURL)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BACKSTAGE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
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
