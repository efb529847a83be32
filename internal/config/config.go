package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/pkg/db"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Hub HubConfig

	SpotBaseURL      string
	SpotPollInterval time.Duration

	InboxPollInterval time.Duration
	InboxBatchSize    int
	InboxMaxAttempts  int

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	OutboxMaxRetries     int
	OutboxRetryBaseDelay time.Duration

	SettlementPollInterval time.Duration
	SettlementBatchSize    int

	SupplierGLN  string
	SupplierName string
}

// HubConfig carries the message hub coordinates. Missing credentials put
// the engine in simulation mode: the dispatcher accepts every send and the
// fetcher polls nothing.
type HubConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Simulation reports whether the hub transport should be simulated.
func (h HubConfig) Simulation() bool {
	return h.BaseURL == "" || h.ClientID == "" || h.ClientSecret == ""
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "voltra"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", ""),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "voltra"),
		DBUser:            getenv("DATABASE_USER", "voltra"),
		DBPassword:        getenv("DATABASE_PASSWORD", "voltra"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Hub: HubConfig{
			BaseURL:      strings.TrimSpace(getenv("HUB_BASE_URL", "")),
			ClientID:     strings.TrimSpace(getenv("HUB_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv("HUB_CLIENT_SECRET", "")),
			Timeout:      getenvDuration("HUB_TIMEOUT", 30*time.Second),
		},

		SpotBaseURL:      strings.TrimSpace(getenv("SPOT_BASE_URL", "")),
		SpotPollInterval: getenvDuration("SPOT_POLL_INTERVAL", time.Hour),

		InboxPollInterval: getenvDuration("INBOX_POLL_INTERVAL", 10*time.Second),
		InboxBatchSize:    getenvInt("INBOX_BATCH_SIZE", 10),
		InboxMaxAttempts:  getenvInt("INBOX_MAX_ATTEMPTS", 5),

		OutboxPollInterval:   getenvDuration("OUTBOX_POLL_INTERVAL", 10*time.Second),
		OutboxBatchSize:      getenvInt("OUTBOX_BATCH_SIZE", 10),
		OutboxMaxRetries:     getenvInt("OUTBOX_MAX_RETRIES", 5),
		OutboxRetryBaseDelay: getenvDuration("OUTBOX_RETRY_BASE_DELAY", 10*time.Second),

		SettlementPollInterval: getenvDuration("SETTLEMENT_POLL_INTERVAL", 30*time.Second),
		SettlementBatchSize:    getenvInt("SETTLEMENT_BATCH_SIZE", 10),

		SupplierGLN:  strings.TrimSpace(getenv("SUPPLIER_GLN", "5790000701414")),
		SupplierName: getenv("SUPPLIER_NAME", "Nordvolt Energi A/S"),
	}
}

// ProvideDBConfig maps the environment config onto the database package.
func ProvideDBConfig(cfg Config) db.Config {
	return db.Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

// Module provides the environment and market configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		ProvideDBConfig,
		NewMarketConfigHolder,
	),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
