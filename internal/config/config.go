package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	// Content lifecycle
	MomentTTL     time.Duration
	SweepInterval time.Duration

	// Submission rate limits
	MaxDreamsPerDay   int
	MaxMomentsPerHour int

	// Oracle (external AI service)
	OracleBaseURL    string
	OracleAPIKey     string
	OracleTextModel  string
	OracleImageModel string
	OracleTimeout    time.Duration

	// Media uploads
	UploadDir     string
	UploadBaseURL string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	dbURL, err := requireEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	secret, err := requireEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          dbURL,
		JWTSecret:            secret,
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",

		MomentTTL:     getdur("MOMENT_TTL", 24*time.Hour),
		SweepInterval: getdur("SWEEP_INTERVAL", 5*time.Minute),

		MaxDreamsPerDay:   getint("MAX_DREAMS_PER_DAY", 10),
		MaxMomentsPerHour: getint("MAX_MOMENTS_PER_HOUR", 20),

		OracleBaseURL:    getenv("ORACLE_BASE_URL", "https://api.openai.com/v1"),
		OracleAPIKey:     getenv("ORACLE_API_KEY", ""),
		OracleTextModel:  getenv("ORACLE_TEXT_MODEL", "gpt-4o-mini"),
		OracleImageModel: getenv("ORACLE_IMAGE_MODEL", "dall-e-3"),
		OracleTimeout:    getdur("ORACLE_TIMEOUT", 5*time.Second),

		UploadDir:     getenv("UPLOAD_DIR", "./static/uploads"),
		UploadBaseURL: getenv("UPLOAD_BASE_URL", "/uploads"),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func requireEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("missing env: %s", key)
	}
	return v, nil
}

func getint(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getdur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
