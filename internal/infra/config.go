package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// StoreFile keeps the task collection in a JSON file.
	StoreFile = "file"
	// StorePostgres keeps the task collection in the gras_tasks table.
	StorePostgres = "postgres"

	DefaultDomesticURL = "https://grsai.dakka.com.cn"
	DefaultOverseasURL = "https://api.grsai.com"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	Port     string
	LogLevel string
	LogFile  string

	GRSAIAPIKey      string
	GRSAIRegion      string
	GRSAIDomesticURL string
	GRSAIOverseasURL string
	SubmitTimeout    time.Duration
	PollTimeout      time.Duration

	TaskStore   string
	TasksFile   string
	DatabaseURL string

	DBMaxConns        int
	DBMinConns        int
	DBConnectTimeout  time.Duration
	DBMaxConnLifetime time.Duration
	DBMaxConnIdleTime time.Duration

	DownloadDir     string
	DownloadTimeout time.Duration

	TranslationProvider  string
	TranslationThreshold float64
	TranslationTarget    string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string
	GeminiAPIKey         string
	GeminiModel          string
	GeminiBaseURL        string

	APIToken           string
	GeoIPDBPath        string
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration

	RefreshInterval    time.Duration
	RefreshConcurrency int
	AutoDownload       bool
}

// LoadConfig reads an optional .env file, then loads configuration from
// environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFile:  strings.TrimSpace(os.Getenv("LOG_FILE")),

		GRSAIAPIKey:      getEnv("GRSAI_API_KEY", os.Getenv("API_KEY")),
		GRSAIRegion:      getEnv("GRSAI_REGION", "domestic"),
		GRSAIDomesticURL: strings.TrimRight(getEnv("GRSAI_DOMESTIC_URL", DefaultDomesticURL), "/"),
		GRSAIOverseasURL: strings.TrimRight(getEnv("GRSAI_OVERSEAS_URL", DefaultOverseasURL), "/"),
		SubmitTimeout:    time.Second * time.Duration(getEnvInt("GRSAI_SUBMIT_TIMEOUT_SECONDS", 30)),
		PollTimeout:      time.Second * time.Duration(getEnvInt("GRSAI_POLL_TIMEOUT_SECONDS", 15)),

		TaskStore:   strings.ToLower(getEnv("TASK_STORE", StoreFile)),
		TasksFile:   getEnv("TASKS_FILE", "video_tasks.json"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 1),
		DBConnectTimeout:  time.Second * time.Duration(getEnvInt("DB_CONNECT_TIMEOUT_SECONDS", 10)),
		DBMaxConnLifetime: time.Minute * time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME_MINUTES", 60)),
		DBMaxConnIdleTime: time.Minute * time.Duration(getEnvInt("DB_MAX_CONN_IDLE_MINUTES", 30)),

		DownloadDir:     getEnv("DOWNLOAD_DIR", "./downloads"),
		DownloadTimeout: time.Second * time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 30)),

		TranslationProvider:  strings.ToLower(getEnv("TRANSLATION_PROVIDER", "openai")),
		TranslationThreshold: getEnvFloat("TRANSLATION_THRESHOLD", 0.5),
		TranslationTarget:    getEnv("TRANSLATION_TARGET", "en"),
		OpenAIAPIKey:         getEnv("DEEPSEEK_API_KEY", os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:          getEnv("OPENAI_MODEL", "deepseek-chat"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.deepseek.com/v1"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		APIToken:           os.Getenv("API_TOKEN"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		RefreshInterval:    time.Second * time.Duration(getEnvInt("REFRESH_INTERVAL_SECONDS", 30)),
		RefreshConcurrency: getEnvInt("REFRESH_CONCURRENCY", 4),
		AutoDownload:       getEnvBool("AUTO_DOWNLOAD", false),
	}

	if cfg.GRSAIAPIKey == "" {
		return nil, fmt.Errorf("GRSAI_API_KEY is required")
	}

	switch cfg.TaskStore {
	case StoreFile:
		if strings.TrimSpace(cfg.TasksFile) == "" {
			return nil, fmt.Errorf("TASKS_FILE is required")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when TASK_STORE=postgres")
		}
		if cfg.DBMaxConns < 1 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
			return nil, fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS out of range: %d/%d", cfg.DBMinConns, cfg.DBMaxConns)
		}
	default:
		return nil, fmt.Errorf("TASK_STORE must be %q or %q, got %q", StoreFile, StorePostgres, cfg.TaskStore)
	}

	switch cfg.TranslationProvider {
	case "openai", "deepseek", "gemini":
	default:
		return nil, fmt.Errorf("TRANSLATION_PROVIDER must be openai or gemini, got %q", cfg.TranslationProvider)
	}

	if cfg.TranslationThreshold <= 0 || cfg.TranslationThreshold > 1 {
		return nil, fmt.Errorf("TRANSLATION_THRESHOLD must be in (0, 1]")
	}
	if cfg.RefreshConcurrency < 1 {
		cfg.RefreshConcurrency = 1
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
