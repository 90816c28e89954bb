package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	ServerPort int

	StoreDriver string
	DatabaseURL string
	DBDriver    string
	MongoURL    string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BcryptCost       int

	CookieSecure bool
	CSRFEnabled  bool
	CORSOrigins  []string

	RateLimitRPS   int
	RateLimitBurst int

	KafkaBrokers      []string
	NotificationTopic string
	AuditTopic        string

	ESURL      string
	ESUser     string
	ESPassword string
	AuditIndex string

	SeedAdminEmail    string
	SeedAdminPassword string
}

func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// LoadDotEnv reads the given .env files when present; a missing file is not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			slog.Debug("dotenv not loaded, using process environment", "path", p, "error", err)
		}
	}
}

func Load() Config {
	env := strings.ToLower(EnvDefault("APP_ENV", EnvDevelopment))

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "school-auth"),
		Env:         env,
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		StoreDriver: strings.ToLower(EnvDefault("STORE_DRIVER", StorePostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBDriver:    strings.ToLower(EnvDefault("DB_DRIVER", "pgx")),
		MongoURL:    os.Getenv("MONGO_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTokenTTL:   EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  EnvDurationDefault("REFRESH_TOKEN_TTL", 48*time.Hour),
		BcryptCost:       EnvIntDefault("BCRYPT_COST", 12),

		CookieSecure: EnvBoolDefault("COOKIE_SECURE", env == EnvProduction),
		CSRFEnabled:  EnvBoolDefault("CSRF_ENABLED", false),
		CORSOrigins:  CSV(os.Getenv("CORS_ORIGINS")),

		RateLimitRPS:   EnvIntDefault("RATE_LIMIT_RPS", 5),
		RateLimitBurst: EnvIntDefault("RATE_LIMIT_BURST", 10),

		KafkaBrokers:      CSV(os.Getenv("KAFKA_BROKERS")),
		NotificationTopic: EnvDefault("KAFKA_NOTIFICATION_TOPIC", "notifications"),
		AuditTopic:        EnvDefault("KAFKA_AUDIT_TOPIC", "security_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		AuditIndex: EnvDefault("ES_AUDIT_INDEX", "auth-audit"),

		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDurationDefault accepts Go duration strings ("15m", "48h").
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
