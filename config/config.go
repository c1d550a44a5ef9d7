package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RateLimitMs         int
	MaxRetries          int
	MaxPagesAuctions    int
	MaxPagesClassifieds int
	MaxListings         int // 0 = no cap
	DaysBack            int // 0 = no auction-date cutoff
	KomornikRegion      string
	Sources             []string // empty = default active set

	ApifyToken         string
	ApifyWebhookSecret string
	RunAPISecret       string

	ServerHost   string
	ServerPort   string
	CronSchedule string
	CronTimezone string

	ArchiveAfterRuns int

	CSVOutputPath string
	ChromeBin     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "hunter"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "hunter123"),
		PostgresDB:       getEnv("POSTGRES_DB", "hunter_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RateLimitMs:         getEnvInt("RATE_LIMIT_MS", 1500),
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		MaxPagesAuctions:    getEnvInt("MAX_PAGES_AUCTIONS", 50),
		MaxPagesClassifieds: getEnvInt("MAX_PAGES_CLASSIFIEDS", 10),
		MaxListings:         getEnvInt("MAX_LISTINGS", 0),
		DaysBack:            getEnvInt("DAYS_BACK", 0),
		KomornikRegion:      getEnv("KOMORNIK_REGION", "świętokrzyskie"),
		Sources:             getEnvList("SCRAPE_SOURCES"),

		ApifyToken:         getEnv("APIFY_TOKEN", ""),
		ApifyWebhookSecret: getEnv("APIFY_WEBHOOK_SECRET", ""),
		RunAPISecret:       getEnv("RUN_API_SECRET", ""),

		ServerHost:   getEnv("HOST", "0.0.0.0"),
		ServerPort:   getEnv("PORT", "5000"),
		CronSchedule: getEnv("CRON_SCHEDULE", "0 8 * * *"),
		CronTimezone: getEnv("CRON_TIMEZONE", "Europe/Warsaw"),

		ArchiveAfterRuns: getEnvInt("ARCHIVE_AFTER_RUNS", 5),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
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
		if err == nil {
			return n
		}
	}
	return fallback
}

// getEnvList parses a comma-separated env var into a trimmed slice.
func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
