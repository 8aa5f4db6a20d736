package configs

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort     int
	DBDriver     string
	DBHost       string
	DBPort       int
	DBUser       string
	DBPassword   string
	DBName       string
	SQLitePath   string
	RedisHost    string
	RedisPort    int
	LogDir       string
	LoginDelay   time.Duration
	RateLimitMax int
	CORSOrigins  string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		// Only worth mentioning outside of tests.
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using environment and defaults")
		}
	}

	return Config{
		HTTPPort:     envInt("HTTP_PORT", 3004),
		DBDriver:     strings.ToLower(envString("DB_DRIVER", "postgres")),
		DBHost:       envString("DB_HOST", "localhost"),
		DBPort:       envInt("DB_PORT", 5432),
		DBUser:       os.Getenv("DB_USER"),
		DBPassword:   os.Getenv("DB_PASSWORD"),
		DBName:       os.Getenv("DB_NAME"),
		SQLitePath:   envString("SQLITE_PATH", "tasks.db"),
		RedisHost:    os.Getenv("REDIS_HOST"),
		RedisPort:    envInt("REDIS_PORT", 6379),
		LogDir:       envString("LOG_DIR", "logs"),
		LoginDelay:   envDuration("LOGIN_DELAY", time.Second),
		RateLimitMax: envInt("RATE_LIMIT_MAX", 100),
		CORSOrigins:  envString("CORS_ORIGINS", "*"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid value %q for %s, defaulting to %s", raw, key, def)
		return def
	}
	return d
}
