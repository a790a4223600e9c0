package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Checkout      CheckoutConfig
	Stream        StreamConfig
	Uploads       UploadsConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"HARVESTLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"HARVESTLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HARVESTLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HARVESTLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HARVESTLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HARVESTLINK_DB_DSN"`
	Driver string `envconfig:"HARVESTLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HARVESTLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"HARVESTLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HARVESTLINK_DB_USER"`
	LegacyPassword string `envconfig:"HARVESTLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"HARVESTLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"HARVESTLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HARVESTLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HARVESTLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HARVESTLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HARVESTLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HARVESTLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HARVESTLINK_REDIS_ADDR"`
	Password     string        `envconfig:"HARVESTLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"HARVESTLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HARVESTLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HARVESTLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HARVESTLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HARVESTLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HARVESTLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HARVESTLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HARVESTLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"HARVESTLINK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"HARVESTLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HARVESTLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HARVESTLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HARVESTLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HARVESTLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HARVESTLINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow          time.Duration `envconfig:"HARVESTLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentifierLimit int           `envconfig:"HARVESTLINK_AUTH_RATE_LIMIT_LOGIN_IDENTIFIER_LIMIT" default:"5"`
	LoginIPLimit         int           `envconfig:"HARVESTLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow       time.Duration `envconfig:"HARVESTLINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit      int           `envconfig:"HARVESTLINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	APIWindow            time.Duration `envconfig:"HARVESTLINK_RATE_LIMIT_API_WINDOW" default:"1m"`
	APIUserLimit         int           `envconfig:"HARVESTLINK_RATE_LIMIT_API_USER_LIMIT" default:"300"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HARVESTLINK_AUTO_MIGRATE" default:"false"`
	Outbox      bool `envconfig:"HARVESTLINK_FEATURE_OUTBOX" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"HARVESTLINK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CheckoutConfig struct {
	DeliveryLeadDays int    `envconfig:"HARVESTLINK_CHECKOUT_DELIVERY_LEAD_DAYS" default:"3"`
	TrackingPrefix   string `envconfig:"HARVESTLINK_CHECKOUT_TRACKING_PREFIX" default:"HL"`
}

type StreamConfig struct {
	Interval time.Duration `envconfig:"HARVESTLINK_STREAM_INTERVAL" default:"5s"`
	MaxBatch int           `envconfig:"HARVESTLINK_STREAM_MAX_BATCH" default:"25"`
}

type UploadsConfig struct {
	Dir               string   `envconfig:"HARVESTLINK_UPLOADS_DIR" default:"uploads"`
	PublicPath        string   `envconfig:"HARVESTLINK_UPLOADS_PUBLIC_PATH" default:"/uploads"`
	MaxBytes          int64    `envconfig:"HARVESTLINK_UPLOADS_MAX_BYTES" default:"5242880"`
	AllowedExtensions []string `envconfig:"HARVESTLINK_UPLOADS_ALLOWED_EXTENSIONS" default:"jpg,jpeg,png,gif"`
	ThumbnailWidth    int      `envconfig:"HARVESTLINK_UPLOADS_THUMBNAIL_WIDTH" default:"300"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"HARVESTLINK_CRON_INTERVAL" default:"1h"`
	LockTTL           time.Duration `envconfig:"HARVESTLINK_CRON_LOCK_TTL" default:"10m"`
	JobTimeout        time.Duration `envconfig:"HARVESTLINK_CRON_JOB_TIMEOUT" default:"5m"`
	LowStockBatchSize int           `envconfig:"HARVESTLINK_CRON_LOW_STOCK_BATCH" default:"100"`
	CartTTL           time.Duration `envconfig:"HARVESTLINK_CART_TTL" default:"168h"`
	OutboxRetention   time.Duration `envconfig:"HARVESTLINK_OUTBOX_RETENTION" default:"720h"`
	MetricsAddr       string        `envconfig:"HARVESTLINK_CRON_METRICS_ADDR" default:":9092"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HARVESTLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HARVESTLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HARVESTLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic     string `envconfig:"HARVESTLINK_PUBSUB_DOMAIN_TOPIC" default:"hl-domain-events"`
	OrderedDelivery bool   `envconfig:"HARVESTLINK_PUBSUB_ORDERED_DELIVERY" default:"true"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"HARVESTLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"HARVESTLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"HARVESTLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"HARVESTLINK_OUTBOX_METRICS_ADDR" default:":9091"`
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
