package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPoolMin  int
	DBPoolMax  int

	ServerPort  string
	FrontendURL string

	JWTSecret      string
	JWTExpiryHours int

	GHAppID             int64
	GHAppPrivateKey     string
	GHWebhookSecret     string
	GHAppInstallationID int64
	GHOAuthClientID     string
	GHOAuthClientSecret string
	GHOAuthRedirectURI  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	AITimeout     time.Duration

	TelegramBotToken      string
	TelegramWebhookSecret string

	RecallAPIKey        string
	RecallAPIBaseURL    string
	RecallWebhookSecret string

	StagnationInterval  time.Duration
	StagnationThreshold time.Duration

	SnowflakeWorkerID int64

	LogLevel string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "equilibra_user"),
		DBPassword: getEnv("DB_PASSWORD", "equilibra_pass"),
		DBName:     getEnv("DB_NAME", "equilibra_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPoolMin:  getEnvInt("DB_POOL_MIN", 1),
		DBPoolMax:  getEnvInt("DB_POOL_MAX", 10),

		ServerPort:  getEnv("SERVER_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://127.0.0.1:5173"),

		JWTSecret:      getEnv("JWT_SECRET", "supersecretkey"),
		JWTExpiryHours: getEnvInt("JWT_EXPIRY_HOURS", 8),

		GHAppID:             getEnvInt64("GITHUB_APP_ID", 0),
		GHAppPrivateKey:     getEnv("GITHUB_APP_PRIVATE_KEY", ""),
		GHWebhookSecret:     getEnv("GITHUB_WEBHOOK_SECRET", ""),
		GHAppInstallationID: getEnvInt64("GITHUB_APP_INSTALLATION_ID", 0),
		GHOAuthClientID:     getEnv("GITHUB_OAUTH_CLIENT_ID", ""),
		GHOAuthClientSecret: getEnv("GITHUB_OAUTH_CLIENT_SECRET", ""),
		GHOAuthRedirectURI:  getEnv("GITHUB_OAUTH_REDIRECT_URI", "http://127.0.0.1:8080/auth/callback"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AITimeout:     getEnvDuration("AI_TIMEOUT", 15*time.Second),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		RecallAPIKey:        getEnv("RECALL_API_KEY", ""),
		RecallAPIBaseURL:    getEnv("RECALL_API_BASE_URL", "https://ap-northeast-1.recall.ai"),
		RecallWebhookSecret: getEnv("RECALL_WEBHOOK_SECRET", ""),

		StagnationInterval:  getEnvDuration("STAGNATION_INTERVAL", time.Hour),
		StagnationThreshold: getEnvDuration("STAGNATION_THRESHOLD", 48*time.Hour),

		SnowflakeWorkerID: getEnvInt64("SNOWFLAKE_WORKER_ID", 1),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
