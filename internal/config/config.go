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

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	PublicBaseURL   string
}

// Enabled reports whether enough R2 settings are present to export reports.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

type DifyConfig struct {
	User          string
	InputVariable string
}

type Config struct {
	BaseURL       string
	StateDir      string
	SessionCookie string
	HTTPTimeout   time.Duration
	PageSize      int
	Workers       int
	Environment   string
	Dify          DifyConfig
	R2            R2Config
}

// Load reads ENV_FILE (default .env) into the process environment and builds
// the client configuration from it. A missing env file is not an error.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	} else {
		log.Println("Loaded", envFile)
	}

	return Config{
		BaseURL:       strings.TrimRight(getEnv("ANYSPECS_BASE_URL", "http://localhost:3000"), "/"),
		StateDir:      expandHome(getEnv("ANYSPECS_STATE_DIR", "~/.anyspecs")),
		SessionCookie: getEnv("ANYSPECS_SESSION_COOKIE", "token"),
		HTTPTimeout:   getDuration("ANYSPECS_HTTP_TIMEOUT", 0),
		PageSize:      getInt("ANYSPECS_PAGE_SIZE", 12),
		Workers:       getInt("ANYSPECS_WORKERS", 1),
		Environment:   getEnv("ENV", "development"),
		Dify: DifyConfig{
			User:          getEnv("DIFY_USER", "chat-user"),
			InputVariable: getEnv("DIFY_INPUT_VARIABLE", "file"),
		},
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			PublicBaseURL:   getEnv("R2_PUBLIC_BASE_URL", ""),
		},
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		log.Printf("Ignoring invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d < 0 {
		log.Printf("Ignoring invalid %s=%q", key, value)
		return fallback
	}
	return d
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
