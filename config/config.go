package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DB. Extra aliases read their DSN from DATABASE_URL_<ALIAS>.
	DatabaseURL     string   `envconfig:"DATABASE_URL" required:"true"`
	DatabaseAliases []string `envconfig:"DATABASE_ALIASES"`
	AutoMigrate     bool     `envconfig:"DB_AUTO_MIGRATE" default:"true"`

	// JWT
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer       string        `envconfig:"JWT_ISSUER" default:"petcare-accounts"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"720h"`

	VerificationTokenTTL time.Duration `envconfig:"VERIFICATION_TOKEN_TTL" default:"24h"`
	ResetTokenTTL        time.Duration `envconfig:"RESET_TOKEN_TTL" default:"30m"`
	PhoneCodeTTL         time.Duration `envconfig:"PHONE_CODE_TTL" default:"10m"`
	OTPIssuer            string        `envconfig:"OTP_ISSUER" default:"PetCare"`
	BcryptCost           int           `envconfig:"BCRYPT_COST" default:"12"`

	CookieDomain string `envconfig:"COOKIE_DOMAIN"`
	CookieSecure bool   `envconfig:"COOKIE_SECURE" default:"true"`

	// Redis user cache, disabled when RedisAddr is empty.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	UserCacheTTL  time.Duration `envconfig:"USER_CACHE_TTL" default:"5m"`

	// Kafka user events, disabled when no brokers are set.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_USER_TOPIC" default:"accounts.user-events"`

	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	EmailFrom    string `envconfig:"EMAIL_FROM"`
	AppBaseURL   string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// AliasDSNs returns the DSN of every extra database alias.
func (c Config) AliasDSNs() (map[string]string, error) {
	return c.aliasDSNs(os.LookupEnv)
}

func (c Config) aliasDSNs(lookup func(string) (string, bool)) (map[string]string, error) {
	dsns := make(map[string]string, len(c.DatabaseAliases))
	for _, alias := range c.DatabaseAliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		key := "DATABASE_URL_" + strings.ToUpper(strings.ReplaceAll(alias, "-", "_"))
		dsn, ok := lookup(key)
		if !ok || strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("database alias %q: %s is not set", alias, key)
		}
		dsns[alias] = dsn
	}
	return dsns, nil
}
