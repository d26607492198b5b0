package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"task_manager/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	AppVersion  string
	DatabaseURL string
	AutoMigrate bool

	JWTSecret string
	JWTTTL    time.Duration

	AllowedOrigins []string

	// Redis is optional; without it rate limiting is in-process and events are not relayed.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration

	LogLevel string
	LogJSON  bool
}

// Load reads .env (when present) and the process environment. Missing required
// settings are fatal.
func Load() *Config {
	_ = godotenv.Load()

	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg, err := FromEnv()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "5000"
	}

	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "dev"
	}

	// tokens are valid for 7 days unless overridden
	jwtTTL := time.Duration(intEnv("JWT_TTL_HOURS", 7*24)) * time.Hour

	origins := []string{"http://localhost:5173"}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		origins = origins[:0]
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		AppPort:        port,
		AppVersion:     version,
		DatabaseURL:    dbURL,
		AutoMigrate:    os.Getenv("AUTO_MIGRATE") != "false",
		JWTSecret:      jwtSecret,
		JWTTTL:         jwtTTL,
		AllowedOrigins: origins,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        intEnv("REDIS_DB", 0),
		APIRateLimit:   intEnv("API_RATE_LIMIT", 120),
		APIRateWindow:  time.Duration(intEnv("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AuthRateLimit:  intEnv("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: time.Duration(intEnv("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogJSON:        os.Getenv("LOG_JSON") == "true",
	}, nil
}

// intEnv returns a positive integer from the environment or def.
func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
