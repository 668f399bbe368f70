package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
type AppConfig struct {
	Port          string
	GinMode       string
	SiteURL       string
	SessionSecret string
	AppSecretKey  string
	TemplatesDir  string
	UploadDir     string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	RateLimitPerMinute int
	AllowedOrigins     []string

	MarketSymbol   string
	MarketInterval time.Duration
	MarketBaseURL  string

	ReverifyAfter time.Duration
	VerifyCodeTTL time.Duration
	ResetTokenTTL time.Duration
}

var (
	cfg    AppConfig
	loaded bool
)

// Load reads .env (when present) and the process environment. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}
	cfg = FromEnv()
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// FromEnv builds a configuration from the current environment only, applying defaults.
func FromEnv() AppConfig {
	c := AppConfig{
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "release"),
		SiteURL:       strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		SessionSecret: getEnv("SESSION_SECRET", "secret_key_change_me"),
		AppSecretKey:  os.Getenv("APP_SECRET_KEY"),
		TemplatesDir:  getEnv("TEMPLATES_DIR", "./web/templates"),
		UploadDir:     getEnv("UPLOAD_DIR", "./web/static/uploads"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASS", "postgres"),
		DBName:      getEnv("DB_NAME", "tickertalk"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       os.Getenv("LOG_PATH"),
		LogMaxSizeMB:  getInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getInt("LOG_MAX_AGE_DAYS", 7),
		LogCompress:   getEnv("LOG_COMPRESS", "") == "true",

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:     splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),

		MarketSymbol:   getEnv("MARKET_SYMBOL", "AAPL"),
		MarketInterval: getDuration("MARKET_INTERVAL", 10*time.Second),
		MarketBaseURL:  getEnv("MARKET_BASE_URL", "https://query1.finance.yahoo.com"),

		ReverifyAfter: time.Duration(getInt("REVERIFY_AFTER_DAYS", 14)) * 24 * time.Hour,
		VerifyCodeTTL: getDuration("VERIFY_CODE_TTL", 10*time.Minute),
		ResetTokenTTL: getDuration("RESET_TOKEN_TTL", 900*time.Second),
	}
	if c.AppSecretKey == "" {
		// Reset tokens are then signed with the session secret.
		c.AppSecretKey = c.SessionSecret
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{c.SiteURL}
	}
	return c
}

// DSN returns the Postgres connection string, preferring DATABASE_URL.
func (c AppConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// RedisEnabled reports whether a Redis server was configured.
func (c AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid integer value %s=%q, using %d", key, val, defaultVal)
		return defaultVal
	}
	return i
}

// getDuration accepts Go durations ("90s") or bare seconds ("90").
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid duration value %s=%q, using %s", key, val, defaultVal)
	return defaultVal
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
