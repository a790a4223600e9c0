package config

const EnvPrefix = "HARVESTLINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "HARVESTLINK_APP_ENV"
	EnvPort                   = "HARVESTLINK_APP_PORT"
	EnvDBDSN                  = "HARVESTLINK_DB_DSN"
	EnvDBHost                 = "HARVESTLINK_DB_HOST"
	EnvDBUser                 = "HARVESTLINK_DB_USER"
	EnvDBName                 = "HARVESTLINK_DB_NAME"
	EnvDBPassword             = "HARVESTLINK_DB_PASSWORD"
	EnvRedisURL               = "HARVESTLINK_REDIS_URL"
	EnvJWTSecret              = "HARVESTLINK_JWT_SECRET"
	EnvJWTIssuer              = "HARVESTLINK_JWT_ISSUER"
	EnvJWTExpMins             = "HARVESTLINK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "HARVESTLINK_REFRESH_TOKEN_TTL_MINUTES"
	EnvCheckoutLeadDays       = "HARVESTLINK_CHECKOUT_DELIVERY_LEAD_DAYS"
	EnvUploadsAllowedExts     = "HARVESTLINK_UPLOADS_ALLOWED_EXTENSIONS"
	EnvPubSubDomainTopic      = "HARVESTLINK_PUBSUB_DOMAIN_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
