package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Repo           string // remote | local
	APIBaseURL     string
	APITimeout     time.Duration
	DBDSN          string
	LogFile        string
	TemplatesDir   string
	SessionTTL     time.Duration
	MaxUploadBytes int
	RateLimit      int // requests per minute per IP
}

// Load reads the environment, after an optional .env file in the working
// directory.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := Config{
		Port:           env("PORT", "8080"),
		Repo:           env("REPO", "remote"),
		APIBaseURL:     env("API_BASE_URL", "http://localhost:8081/api"),
		APITimeout:     duration("API_TIMEOUT", 15*time.Second),
		DBDSN:          env("DB_DSN", ":memory:"),
		LogFile:        os.Getenv("LOG_FILE"),
		TemplatesDir:   env("TEMPLATES_DIR", "./web/templates"),
		SessionTTL:     duration("SESSION_TTL", 30*time.Minute),
		MaxUploadBytes: integer("MAX_UPLOAD_BYTES", 5<<20),
		RateLimit:      integer("RATE_LIMIT", 120),
	}
	if cfg.Repo != "remote" && cfg.Repo != "local" {
		log.Printf("[config] unknown REPO=%q, using remote", cfg.Repo)
		cfg.Repo = "remote"
	}
	log.Printf("[config] PORT=%s REPO=%s API_BASE_URL=%s API_TIMEOUT=%s DB_DSN=%s LOG_FILE=%s SESSION_TTL=%s",
		cfg.Port, cfg.Repo, cfg.APIBaseURL, cfg.APITimeout, cfg.DBDSN, cfg.LogFile, cfg.SessionTTL)
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] bad %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] bad %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
