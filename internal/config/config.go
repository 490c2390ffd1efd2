package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Environment   string
	DatabaseURL   string
	RedisURL      string
	WebRoot       string
	TLSCertPath   string
	TLSKeyPath    string
	TranscriberURL string
	TranslatorURL  string
	SynthesizerURL string
	SessionExpiry time.Duration
	SweepInterval time.Duration
}

func Load() *Config {
	// Optional .env for local development; environment variables win.
	if err := godotenv.Load(".env"); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	return &Config{
		Port:           getEnv("PORT", "5000"),
		Environment:    getEnv("ENV", "development"),
		DatabaseURL:    getEnv("DATABASE_URL", "sessions.db"),
		RedisURL:       getEnv("REDIS_URL", ""),
		WebRoot:        getEnv("WEB_ROOT", "./web"),
		TLSCertPath:    getEnv("TLS_CERT", ""),
		TLSKeyPath:     getEnv("TLS_KEY", ""),
		TranscriberURL: getEnv("TRANSCRIBER_URL", "http://whisper:9000"),
		TranslatorURL:  getEnv("TRANSLATOR_URL", "http://translator:9001"),
		SynthesizerURL: getEnv("SYNTHESIZER_URL", "http://tts:9002"),
		SessionExpiry:  getEnvDuration("SESSION_EXPIRY_SECONDS", 7200*time.Second),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration reads a duration given in whole seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default", key, value)
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}
