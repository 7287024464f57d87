package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string
	LogFile   string

	APIBaseURL  string
	HTTPTimeout time.Duration

	SessionBackend string
	SessionFile    string

	RedisHost     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	CartLiveSync bool
}

// Load reads .env (if any) and then the process environment.
func Load() Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("no .env file found, using system environment")
	} else {
		log.Println(".env file loaded")
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		AppEnv:    getEnv("APP_ENV", "dev"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		APIBaseURL:  strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000"), "/"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "file")),
		SessionFile:    getEnv("SESSION_FILE", defaultSessionFile()),

		RedisHost:     getEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "techworld:"),

		CartLiveSync: getEnvBool("CART_LIVE_SYNC", false),
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".techworld", "storage.json")
	}
	return filepath.Join(home, ".techworld", "storage.json")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
