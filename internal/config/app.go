package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	Telegram TelegramConfig
	Storage  StorageConfig
	Session  SessionConfig
}

type TelegramConfig struct {
	Token       string
	AdminChatID int64
	Debug       bool
}

type StorageConfig struct {
	QuestionsFile string
	ResultsCSV    string
	ArchiveDB     string
}

type SessionConfig struct {
	CleanupInterval time.Duration
	MaxIdle         time.Duration
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Telegram: TelegramConfig{
			Token:       getEnv("BOT_TOKEN", ""),
			AdminChatID: getEnvAsInt64("ADMIN_CHAT_ID", 0),
			Debug:       getEnvAsBool("TELEGRAM_DEBUG", false),
		},
		Storage: StorageConfig{
			QuestionsFile: getEnv("QUESTIONS_FILE", "config/questions.yaml"),
			ResultsCSV:    getEnv("RESULTS_CSV", "test_results.csv"),
			ArchiveDB:     getEnv("ARCHIVE_DB", "results/archive.db"),
		},
		Session: SessionConfig{
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 1*time.Hour),
			MaxIdle:         getEnvAsDuration("SESSION_MAX_IDLE", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
