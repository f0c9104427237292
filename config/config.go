package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCheckInterval applies when neither CHECK_INTERVAL_HOURS nor the
// stored settings name an interval.
const DefaultCheckInterval = 2 * time.Hour

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreBackend string
	DataDir      string
	SQLitePath   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MongoURI string
	MongoDB  string

	ChromeBin string
	Headless  bool

	NavTimeout       time.Duration
	NavAttempts      int
	SettleDelay      time.Duration
	ScrollIterations int
	ScrollPause      time.Duration
	ActivatePause    time.Duration
	StableRounds     int
	MaxReviews       int
	TargetDelay      time.Duration

	// CheckInterval is zero unless CHECK_INTERVAL_HOURS is set.
	CheckInterval time.Duration
	HTTPAddr      string
	Debug         bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreBackend: getEnv("STORE_BACKEND", "json"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLitePath:   getEnv("SQLITE_PATH", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "monitor"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "monitor123"),
		PostgresDB:       getEnv("POSTGRES_DB", "reviews_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "review_monitor"),

		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),

		NavTimeout:       getEnvMs("NAV_TIMEOUT_MS", 60000),
		NavAttempts:      getEnvInt("NAV_ATTEMPTS", 2),
		SettleDelay:      getEnvMs("SETTLE_DELAY_MS", 5000),
		ScrollIterations: getEnvInt("SCROLL_ITERATIONS", 6),
		ScrollPause:      getEnvMs("SCROLL_PAUSE_MS", 1000),
		ActivatePause:    getEnvMs("ACTIVATE_PAUSE_MS", 2000),
		StableRounds:     getEnvInt("STABLE_ROUNDS", 2),
		MaxReviews:       getEnvInt("MAX_REVIEWS", 50),
		TargetDelay:      getEnvMs("TARGET_DELAY_MS", 3000),

		CheckInterval: time.Duration(getEnvInt("CHECK_INTERVAL_HOURS", 0)) * time.Hour,
		HTTPAddr:      getEnv("HTTP_ADDR", ":5000"),
		Debug:         getEnvBool("LOG_DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMs(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}
