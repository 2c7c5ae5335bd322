package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "kudos"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "KUDOS_DB_DSN"
	EnvDBHost = "KUDOS_DB_HOST"
	EnvDBUser = "KUDOS_DB_USER"
	EnvDBName = "KUDOS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Billing      BillingConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KUDOS_APP_ENV" required:"true"`
	Port         string `envconfig:"KUDOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KUDOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KUDOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KUDOS_DB_DSN"`
	Driver string `envconfig:"KUDOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KUDOS_DB_HOST"`
	LegacyPort     int    `envconfig:"KUDOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KUDOS_DB_USER"`
	LegacyPassword string `envconfig:"KUDOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"KUDOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"KUDOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KUDOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KUDOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KUDOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KUDOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KUDOS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KUDOS_REDIS_ADDR"`
	Password     string        `envconfig:"KUDOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"KUDOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KUDOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KUDOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KUDOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KUDOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KUDOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KUDOS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KUDOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KUDOS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KUDOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KUDOS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KUDOS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"KUDOS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KUDOS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	FeedTopic string `envconfig:"KUDOS_PUBSUB_FEED_TOPIC" default:"kudos-feed-events"`
}

type StripeConfig struct {
	APIKey             string        `envconfig:"KUDOS_STRIPE_API_KEY"`
	Secret             string        `envconfig:"KUDOS_STRIPE_WEBHOOK_SECRET"`
	Env                string        `envconfig:"KUDOS_STRIPE_ENV" default:"test"`
	SeatPriceID        string        `envconfig:"KUDOS_STRIPE_SEAT_PRICE_ID"`
	CheckoutSuccessURL string        `envconfig:"KUDOS_STRIPE_CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string        `envconfig:"KUDOS_STRIPE_CHECKOUT_CANCEL_URL"`
	CheckoutSessionTTL time.Duration `envconfig:"KUDOS_STRIPE_CHECKOUT_SESSION_TTL" default:"24h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type BillingConfig struct {
	// DefaultPricePerSeatCents is the fallback used when the settings table
	// has no price_per_seat_cents row yet.
	DefaultPricePerSeatCents int `envconfig:"KUDOS_BILLING_DEFAULT_PRICE_PER_SEAT_CENTS" default:"299"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"KUDOS_CRON_INTERVAL" default:"15m"`
	LockKey    string        `envconfig:"KUDOS_CRON_LOCK_KEY" default:"kudos:cron:lock"`
	LockTTL    time.Duration `envconfig:"KUDOS_CRON_LOCK_TTL" default:"14m"`
	RetryBatch int           `envconfig:"KUDOS_CRON_SEAT_SYNC_RETRY_BATCH" default:"100"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
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
