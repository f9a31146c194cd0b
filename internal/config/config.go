// Package config provides environment configuration for the API server and
// the profile file of the terminal client.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Completion providers for the legacy path.
const (
	ProviderBackend   = "backend"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	AllowedOrigins     []string

	// Learning platform API
	BackendURL     string
	BackendTimeout time.Duration
	BackendToken   string

	// Assistant behavior
	ContextWindow     int
	SystemPrompt      string
	Greeting          string
	CourseGenDisabled bool
	GenerationTimeout time.Duration

	// SurfaceIdleTTL is how long an untouched per-user surface is kept.
	SurfaceIdleTTL time.Duration

	// Completion provider for the fallback path
	CompletionProvider string
	CompletionModel    string
	AnthropicAPIKey    string
	OpenAIAPIKey       string
	OpenAIBaseURL      string

	// NATS settings; an empty URL disables activity publishing.
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// CourseScope, when set, is the token scope required for course
	// decisions (confirm, regenerate, abort).
	CourseScope string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 5*time.Minute),
		AllowedOrigins:     getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),

		// Backend
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:3000"),
		BackendTimeout: getDurationEnv("BACKEND_TIMEOUT", 3*time.Minute),
		BackendToken:   getEnv("BACKEND_TOKEN", ""),

		// Assistant
		ContextWindow:     getIntEnv("CONTEXT_WINDOW", 10),
		SystemPrompt:      getEnv("SYSTEM_PROMPT", ""),
		Greeting:          getEnv("GREETING", ""),
		CourseGenDisabled: getBoolEnv("COURSE_GENERATION_DISABLED", false),
		GenerationTimeout: getDurationEnv("GENERATION_TIMEOUT", 3*time.Minute),
		SurfaceIdleTTL:    getDurationEnv("SURFACE_IDLE_TTL", 30*time.Minute),

		// Completion
		CompletionProvider: strings.ToLower(getEnv("COMPLETION_PROVIDER", ProviderBackend)),
		CompletionModel:    getEnv("COMPLETION_MODEL", ""),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Auth
		JWTSecret:   getEnv("JWT_SECRET", "development-secret-change-in-production"),
		CourseScope: getEnv("COURSE_SCOPE", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	}
	if c.ContextWindow <= 0 {
		errs = append(errs, fmt.Errorf("CONTEXT_WINDOW must be positive, got %d", c.ContextWindow))
	}
	if c.SurfaceIdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("SURFACE_IDLE_TTL must be positive, got %s", c.SurfaceIdleTTL))
	}
	switch c.CompletionProvider {
	case ProviderBackend:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai completion provider"))
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic completion provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown COMPLETION_PROVIDER %q", c.CompletionProvider))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
