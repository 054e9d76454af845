package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	StoragePath        string
	GeoIPDBPath        string
	ScenesFile         string
	DefaultLocale      string
	CORSAllowedOrigins []string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int

	MaxItems             int
	BatchConcurrency     int
	ItemTimeout          time.Duration
	CompressThreshold    int64
	CompressMaxDimension int
	CompressQuality      int
	MaxUploadSize        int64
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:          os.Getenv("GEOIP_DB_PATH"),
		ScenesFile:           os.Getenv("SCENES_FILE"),
		DefaultLocale:        strings.ToLower(getEnv("DEFAULT_LOCALE", "en")),
		CORSAllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		HTTPReadTimeout:      time.Second * time.Duration(env.intValue("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:     time.Second * time.Duration(env.intValue("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:      time.Second * time.Duration(env.intValue("HTTP_IDLE_TIMEOUT_SECONDS", 120)),
		RateLimitPerMin:      env.intValue("RATE_LIMIT_PER_MINUTE", 30),
		MaxItems:             env.intValue("MAX_ITEMS", 10),
		BatchConcurrency:     env.intValue("BATCH_CONCURRENCY", 3),
		ItemTimeout:          time.Second * time.Duration(env.intValue("ITEM_TIMEOUT_SECONDS", 120)),
		CompressMaxDimension: env.intValue("COMPRESS_MAX_DIMENSION", 1536),
		CompressQuality:      env.intValue("COMPRESS_QUALITY", 80),
	}

	if env.err != nil {
		return nil, env.err
	}

	var err error
	if cfg.CompressThreshold, err = getEnvBytes("COMPRESS_THRESHOLD", "1MiB"); err != nil {
		return nil, err
	}
	if cfg.MaxUploadSize, err = getEnvBytes("MAX_UPLOAD_SIZE", "10MB"); err != nil {
		return nil, err
	}

	if cfg.MaxItems <= 0 {
		return nil, fmt.Errorf("MAX_ITEMS must be positive")
	}
	if cfg.BatchConcurrency <= 0 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	if cfg.ItemTimeout <= 0 {
		return nil, fmt.Errorf("ITEM_TIMEOUT_SECONDS must be positive")
	}
	if cfg.CompressQuality < 1 || cfg.CompressQuality > 100 {
		return nil, fmt.Errorf("COMPRESS_QUALITY must be between 1 and 100")
	}
	if cfg.CompressMaxDimension <= 0 {
		return nil, fmt.Errorf("COMPRESS_MAX_DIMENSION must be positive")
	}
	if cfg.DefaultLocale != "en" && cfg.DefaultLocale != "zh" {
		return nil, fmt.Errorf("DEFAULT_LOCALE must be en or zh")
	}

	return cfg, nil
}

// SyntheticOptimizer reports whether no Gemini key is configured.
func (c *Config) SyntheticOptimizer() bool {
	return strings.TrimSpace(c.GeminiAPIKey) == ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return i, nil
}

// envReader keeps the first parse error so LoadConfig can build the struct
// in one literal.
type envReader struct {
	err error
}

func (r *envReader) intValue(key string, fallback int) int {
	i, err := getEnvInt(key, fallback)
	if err != nil && r.err == nil {
		r.err = err
	}
	return i
}

func getEnvBytes(key, fallback string) (int64, error) {
	raw := getEnv(key, fallback)
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid size %q: %w", key, raw, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return int64(n), nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
