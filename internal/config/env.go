package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string
	JWTSecret      string
	MaxUploadMB    int
	IngestWorkers  int
	UseReadability bool
	LogLevel       string
	CorsOrigins    []string
}

// LoadConfig loads the environment variables and return config.
// An empty DATABASE_URL or BUCKET_NAME turns persistence or archival off.
func LoadConfig() *Config {

	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		MaxUploadMB:    getEnvInt("MAX_UPLOAD_MB", 20),
		IngestWorkers:  getEnvInt("INGEST_WORKERS", 2),
		UseReadability: getEnvBool("USE_READABILITY", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CorsOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
	}
}

// ErrMissingJWTSecret is returned by Validate when JWT_SECRET is unset. Tokens signed
// with an empty HS256 key can be forged by anyone.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// MaxUploadBytes is the request body cap for PDF uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("WARN: %s=%q not a positive int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
