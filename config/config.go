package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	defaultDraftTimeout      = 45 * time.Second
	defaultDashboardCacheTTL = 5 * time.Second
	defaultReviewTopic       = "soap-review-events"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUSER  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	LLMBaseURL   string        `json:"llm_base_url"`
	LLMAPIKey    string        `json:"-"`
	LLMModel     string        `json:"llm_model"`
	DraftTimeout time.Duration `json:"draft_timeout"`

	KafkaBrokers     []string `json:"kafka_brokers"`
	KafkaReviewTopic string   `json:"kafka_review_topic"`

	DashboardCacheTTL time.Duration `json:"dashboard_cache_ttl"`
	LogLevel          string        `json:"log_level"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// A missing .env is fine in containers where the environment is injected directly.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Error loading .env file: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

		config = &Config{
			AppName: os.Getenv("APPNAME"),
			AppEnv:  os.Getenv("APPENV"),
			AppPort: uint16(appPort),
			GinMode: os.Getenv("GINMODE"),
			DBHost:  os.Getenv("DBHOST"),
			DBPort:  uint16(dbPort),
			DBName:  os.Getenv("DBNAME"),
			DBUSER:  os.Getenv("DBUSER"),
			DBPass:  os.Getenv("DBPASS"),

			LLMBaseURL:   os.Getenv("LLM_BASE_URL"),
			LLMAPIKey:    os.Getenv("LLM_API_KEY"),
			LLMModel:     os.Getenv("LLM_MODEL"),
			DraftTimeout: parseDuration(os.Getenv("DRAFT_TIMEOUT"), defaultDraftTimeout),

			KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaReviewTopic: getEnvDefault("KAFKA_REVIEW_TOPIC", defaultReviewTopic),

			DashboardCacheTTL: parseDuration(os.Getenv("DASHBOARD_CACHE_TTL"), defaultDashboardCacheTTL),
			LogLevel:          getEnvDefault("LOG_LEVEL", "info"),
		}
		if config.AppPort == 0 {
			config.AppPort = 8080
		}
	})
	return config
}

// ResetConfigForTest drops the cached Config so the next LoadConfig re-reads the environment.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

// ConnectMySQL establishes a connection to a MySQL database using the configuration values.
// When APPENV is "test" an in-memory SQLite database is opened instead.
func ConnectMySQL() (*gorm.DB, error) {
	if os.Getenv("APPENV") == "test" {
		dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}

	cfg := LoadConfig()
	// Build the Data Source Name (DSN) using the configuration values.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
