package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	VerifyToken      string
	WhatsAppToken    string
	PhoneNumberID    string
	GraphAPIBaseURL  string
	GraphTimeoutSecs int
	AsaasToken       string
	DBDriver         string // "postgres" or "sqlite"
	DBDSN            string
	LogFile          string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		VerifyToken:      getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken:    getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:    getEnv("PHONE_NUMBER_ID", ""),
		GraphAPIBaseURL:  getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		GraphTimeoutSecs: getEnvInt("GRAPH_TIMEOUT_SECONDS", 15),
		AsaasToken:       getEnv("ASAAS_WEBHOOK_TOKEN", ""),
		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		DBDSN:            getEnv("DB_DSN", "whatsapp.db"),
		LogFile:          getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
