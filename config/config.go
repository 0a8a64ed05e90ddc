package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Data directories
	UserDataDir string // User files (inbox, notes, etc.) - source of truth
	AppDataDir  string // App data (database, cache) - rebuildable

	// Database
	DatabasePath string

	// Digest pipeline tuning
	MaxDigestAttempts  int
	StartDelay         time.Duration // supervisor warm-up before first pass
	IdleSleep          time.Duration // main loop sleep when nothing to do
	FileDelay          time.Duration // pacing between files
	FailureBaseDelay   time.Duration // backoff base after a failed file
	FailureMaxDelay    time.Duration // backoff cap
	StaleThreshold     time.Duration // in-progress older than this gets reset
	StaleSweepInterval time.Duration // how often the sweep runs
	ExcludedPrefixes   []string      // path prefixes never digested

	// External services
	MeiliHost   string
	MeiliAPIKey string
	MeiliIndex  string

	QdrantHost       string
	QdrantAPIKey     string
	QdrantCollection string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	HAIDBaseURL      string
	HAIDAPIKey       string
	HAIDChromeCDPURL string

	// Debug settings
	DBLogQueries bool
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = load()
	})
	return cfg
}

// load reads configuration from environment variables
func load() *Config {
	userDataDir := getEnv("USER_DATA_DIR", "./data")
	appDataDir := getEnv("APP_DATA_DIR", "./.mylifedb")

	return &Config{
		// Server
		Port: getEnvInt("PORT", 12345),
		Host: getEnv("HOST", "0.0.0.0"),
		Env:  getEnv("ENV", "development"),

		// Data
		UserDataDir:  userDataDir,
		AppDataDir:   appDataDir,
		DatabasePath: filepath.Join(appDataDir, "database.sqlite"),

		// Digest pipeline
		MaxDigestAttempts:  getEnvInt("MAX_ATTEMPTS", 4),
		StartDelay:         getEnvMs("START_DELAY_MS", 10000),
		IdleSleep:          getEnvMs("IDLE_SLEEP_MS", 1000),
		FileDelay:          getEnvMs("FILE_DELAY_MS", 1000),
		FailureBaseDelay:   getEnvMs("FAILURE_BASE_DELAY_MS", 5000),
		FailureMaxDelay:    getEnvMs("FAILURE_MAX_DELAY_MS", 60000),
		StaleThreshold:     getEnvMs("STALE_THRESHOLD_MS", 600000),
		StaleSweepInterval: getEnvMs("STALE_SWEEP_INTERVAL_MS", 60000),
		ExcludedPrefixes:   getEnvList("EXCLUDED_PATH_PREFIXES", "app/,.app/,.git/,.mylifedb/,node_modules/"),

		// Meilisearch
		MeiliHost:   getEnv("MEILI_HOST", ""),
		MeiliAPIKey: getEnv("MEILI_API_KEY", ""),
		MeiliIndex:  getEnv("MEILI_INDEX", "mylifedb_files"),

		// Qdrant
		QdrantHost:       getEnv("QDRANT_HOST", ""),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "mylifedb_vectors"),

		// OpenAI
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		// HAID
		HAIDBaseURL:      getEnv("HAID_BASE_URL", ""),
		HAIDAPIKey:       getEnv("HAID_API_KEY", ""),
		HAIDChromeCDPURL: getEnv("HAID_CHROME_CDP_URL", ""),

		// Debug
		DBLogQueries: getEnv("DB_LOG_QUERIES", "") == "1",
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// GetDataRoot returns the USER_DATA_DIR path
func (c *Config) GetDataRoot() string {
	return c.UserDataDir
}

// GetAppDataDir returns the app data directory path
func (c *Config) GetAppDataDir() string {
	return c.AppDataDir
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvMs(key string, defaultMs int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMs)) * time.Millisecond
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
