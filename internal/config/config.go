package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	StoreDriver string
	StoreKey    string
	DBURL       string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration

	RewardCatalogFile string
}

// Load reads configuration from environment variables. A .env file is loaded
// if present to simplify local development. We look next to the binary, in
// bin/.env, and fall back to .env in the working directory.
func Load() Config {
	loadDotEnv()

	cfg := Config{
		Port:              getString("PORT", "8080"),
		Environment:       getString("ENVIRONMENT", "local"),
		LogLevel:          getString("LOG_LEVEL", ""),
		LogFormat:         getString("LOG_FORMAT", "json"),
		StoreDriver:       strings.ToLower(getString("STORE_DRIVER", "")),
		StoreKey:          getString("STORE_KEY_PREFIX", "rm_") + "record",
		DBURL:             getString("DATABASE_URL", ""),
		SQLitePath:        getString("SQLITE_PATH", ""),
		RedisAddr:         getString("REDIS_ADDR", ""),
		RedisPassword:     getString("REDIS_PASSWORD", ""),
		RedisDB:           getInt("REDIS_DB", 0),
		RedisTimeout:      getDurationSeconds("REDIS_TIMEOUT_SECONDS", 3),
		RewardCatalogFile: getString("REWARD_CATALOG_FILE", ""),
	}
	cfg.StoreDriver = cfg.resolveDriver()
	return cfg
}

// resolveDriver picks the explicit STORE_DRIVER, otherwise infers one from
// whichever connection setting is present.
func (c Config) resolveDriver() string {
	switch {
	case c.StoreDriver != "":
		return c.StoreDriver
	case c.SQLitePath != "":
		return DriverSQLite
	case c.DBURL != "":
		return DriverPostgres
	case c.RedisAddr != "":
		return DriverRedis
	default:
		return DriverMemory
	}
}

func loadDotEnv() {
	candidates := []string{
		filepath.Join("bin", ".env"),
		".env",
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append([]string{
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "bin", ".env"),
		}, candidates...)
	}

	for _, path := range candidates {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			log.Printf("invalid value for %s, using fallback: %v", key, err)
			return fallback
		}
		return n
	}
	return fallback
}

func getDurationSeconds(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Second
}
