package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Store        StoreConfig
	Redis        RedisConfig
	Anthropic    LLMConfig
	OpenAI       LLMConfig
	Gemini       LLMConfig
	Terminology  TerminologyConfig
	Auth         AuthConfig
	OTEL         OTELConfig
	Environment  string
	DefaultModel string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host      string
	Port      int
	StaticDir string
}

// StoreConfig holds the JSON file store paths
type StoreConfig struct {
	PatientsFile string
	PromptsFile  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LLMConfig holds configuration for one upstream model vendor
type LLMConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	RateLimitRPM   int
	RateLimitBurst int
}

// TerminologyConfig holds NHS terminology server configuration
type TerminologyConfig struct {
	BaseURL         string
	TokenURL        string
	ClientID        string
	ClientSecret    string
	CacheTTLSeconds int
}

// AuthConfig holds bearer-token auth configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Users maps demo usernames to passwords, parsed from
	// AUTH_USERS as "alice:secret,bob:hunter2".
	Users map[string]string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "0.0.0.0"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			StaticDir: getEnv("STATIC_DIR", "./web"),
		},
		Store: StoreConfig{
			PatientsFile: getEnv("PATIENTS_FILE", "./data/patients.json"),
			PromptsFile:  getEnv("PROMPTS_FILE", "./data/prompts.json"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Anthropic: LLMConfig{
			APIKey:         getEnv("ANTHROPIC_API_KEY", ""),
			Model:          getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			BaseURL:        getEnv("ANTHROPIC_BASE_URL", ""),
			RateLimitRPM:   getEnvAsInt("ANTHROPIC_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("ANTHROPIC_RATE_LIMIT_BURST", 5),
		},
		OpenAI: LLMConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
		},
		Gemini: LLMConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL:        getEnv("GEMINI_BASE_URL", ""),
			RateLimitRPM:   getEnvAsInt("GEMINI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("GEMINI_RATE_LIMIT_BURST", 5),
		},
		Terminology: TerminologyConfig{
			BaseURL:         getEnv("TERMINOLOGY_BASE_URL", "https://ontology.nhs.uk/production1/fhir"),
			TokenURL:        getEnv("TERMINOLOGY_TOKEN_URL", "https://ontology.nhs.uk/authorisation/auth/realms/nhsd/protocol/openid-connect/token"),
			ClientID:        getEnv("TERMINOLOGY_CLIENT_ID", ""),
			ClientSecret:    getEnv("TERMINOLOGY_CLIENT_SECRET", ""),
			CacheTTLSeconds: getEnvAsInt("TERMINOLOGY_CACHE_TTL_SECONDS", 3600),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-only-secret"),
			TokenTTL:  time.Duration(getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 480)) * time.Minute,
			Users:     parseUsers(getEnv("AUTH_USERS", "demo:demo")),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clinconsult"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Environment:  getEnv("APP_ENV", "development"),
		DefaultModel: getEnv("DEFAULT_MODEL", "claude-sonnet-4-20250514"),
	}, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// parseUsers parses "user:pass,user2:pass2" into a map.
func parseUsers(raw string) map[string]string {
	users := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, pass, ok := strings.Cut(pair, ":")
		if !ok || name == "" {
			continue
		}
		users[name] = pass
	}
	return users
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
