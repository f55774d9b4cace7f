package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	RedisAddr       string
	JWTSecret       string
	TokenTTL        time.Duration
	CredentialsFile string // empty selects the built-in demo table
}

func Load() *Config {
	// Optional .env for local runs; real env always wins.
	_ = godotenv.Load(".env")

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8000"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-only-secret"),
		TokenTTL:        time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 30)) * time.Minute,
		CredentialsFile: getEnv("CREDENTIALS_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
