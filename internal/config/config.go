// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings such as
// server timeouts, logging, local persistence, autosave, provider access,
// rate limiting, and observability.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "character-hub")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StorageConfig controls the local key/value persistence and autosave.
type StorageConfig struct {
	DBPath           string        // DB_PATH
	SnapshotKey      string        // SNAPSHOT_KEY, key the store snapshot is saved under
	APIKeysKey       string        // API_KEYS_KEY, key the provider API keys are saved under
	AutoSaveEnabled  bool          // AUTOSAVE_ENABLED
	AutoSaveInterval time.Duration // AUTOSAVE_INTERVAL
	MaxImportBytes   int64         // MAX_IMPORT_BYTES, cap on snapshot import bodies
}

// ChatConfig holds defaults for conversation flow.
type ChatConfig struct {
	MaxMessageRunes int     // MAX_MESSAGE_RUNES
	Temperature     float64 // DEFAULT_TEMPERATURE
	MaxTokens       int     // DEFAULT_MAX_TOKENS
	TopP            float64 // DEFAULT_TOP_P
}

// ProviderConfig configures the text-generation backends.
type ProviderConfig struct {
	Default          string        // PROVIDER: openai|anthropic|local|mock
	OpenAIKey        string        // OPENAI_API_KEY
	OpenAIBaseURL    string        // OPENAI_BASE_URL
	OpenAIModel      string        // OPENAI_MODEL
	AnthropicKey     string        // ANTHROPIC_API_KEY
	AnthropicBaseURL string        // ANTHROPIC_BASE_URL
	AnthropicVersion string        // ANTHROPIC_VERSION
	AnthropicModel   string        // ANTHROPIC_MODEL
	LocalBaseURL     string        // LOCAL_BASE_URL
	Timeout          time.Duration // PROVIDER_TIMEOUT
	HealthTimeout    time.Duration // PROVIDER_HEALTH_TIMEOUT
	RetryAttempts    int           // PROVIDER_RETRY_ATTEMPTS
	RetryDelay       time.Duration // PROVIDER_RETRY_DELAY
	RPS              float64       // PROVIDER_RPS
	Burst            int           // PROVIDER_BURST
	MockMinDelay     time.Duration // MOCK_MIN_DELAY
	MockMaxDelay     time.Duration // MOCK_MAX_DELAY
	StreamWordDelay  time.Duration // STREAM_WORD_DELAY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s, streaming replies need headroom
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // cap for regular JSON bodies
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	Storage  StorageConfig
	Chat     ChatConfig
	Provider ProviderConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) without overriding variables already present in the environment.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		Storage: StorageConfig{
			DBPath:           getenv("DB_PATH", "character-hub.db"),
			SnapshotKey:      getenv("SNAPSHOT_KEY", "aiCharacterHubData"),
			APIKeysKey:       getenv("API_KEYS_KEY", "aiHub_apiKeys"),
			AutoSaveEnabled:  getbool("AUTOSAVE_ENABLED", true),
			AutoSaveInterval: getdur("AUTOSAVE_INTERVAL", 30*time.Second),
			MaxImportBytes:   int64(getint("MAX_IMPORT_BYTES", 10<<20)),
		},

		Chat: ChatConfig{
			MaxMessageRunes: getint("MAX_MESSAGE_RUNES", 5000),
			Temperature:     getfloat("DEFAULT_TEMPERATURE", 0.8),
			MaxTokens:       getint("DEFAULT_MAX_TOKENS", 1000),
			TopP:            getfloat("DEFAULT_TOP_P", 0.9),
		},

		Provider: ProviderConfig{
			Default:          strings.ToLower(getenv("PROVIDER", "mock")),
			OpenAIKey:        getenv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:      getenv("OPENAI_MODEL", "gpt-3.5-turbo"),
			AnthropicKey:     getenv("ANTHROPIC_API_KEY", ""),
			AnthropicBaseURL: getenv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			AnthropicVersion: getenv("ANTHROPIC_VERSION", "2023-06-01"),
			AnthropicModel:   getenv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
			LocalBaseURL:     getenv("LOCAL_BASE_URL", "http://localhost:8080/api"),
			Timeout:          getdur("PROVIDER_TIMEOUT", 30*time.Second),
			HealthTimeout:    getdur("PROVIDER_HEALTH_TIMEOUT", time.Second),
			RetryAttempts:    getint("PROVIDER_RETRY_ATTEMPTS", 3),
			RetryDelay:       getdur("PROVIDER_RETRY_DELAY", time.Second),
			RPS:              getfloat("PROVIDER_RPS", 1.0),
			Burst:            getint("PROVIDER_BURST", 60),
			MockMinDelay:     getdur("MOCK_MIN_DELAY", 500*time.Millisecond),
			MockMaxDelay:     getdur("MOCK_MAX_DELAY", 1500*time.Millisecond),
			StreamWordDelay:  getdur("STREAM_WORD_DELAY", 50*time.Millisecond),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "character-hub"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if err := cfg.Storage.validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Chat.validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Provider.validate(); err != nil {
		return cfg, err
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func (s StorageConfig) validate() error {
	if strings.TrimSpace(s.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(s.SnapshotKey) == "" || strings.TrimSpace(s.APIKeysKey) == "" {
		return errors.New("SNAPSHOT_KEY and API_KEYS_KEY must not be empty")
	}
	if s.SnapshotKey == s.APIKeysKey {
		return errors.New("SNAPSHOT_KEY and API_KEYS_KEY must differ")
	}
	if s.AutoSaveInterval <= 0 {
		return errors.New("AUTOSAVE_INTERVAL must be > 0")
	}
	if s.MaxImportBytes <= 0 {
		return errors.New("MAX_IMPORT_BYTES must be > 0")
	}
	return nil
}

func (c ChatConfig) validate() error {
	if c.MaxMessageRunes <= 0 {
		return errors.New("MAX_MESSAGE_RUNES must be > 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("DEFAULT_TEMPERATURE must be in [0,2]")
	}
	if c.MaxTokens <= 0 {
		return errors.New("DEFAULT_MAX_TOKENS must be > 0")
	}
	if c.TopP < 0 || c.TopP > 1 {
		return errors.New("DEFAULT_TOP_P must be in [0,1]")
	}
	return nil
}

func (p ProviderConfig) validate() error {
	switch p.Default {
	case "openai", "anthropic", "local", "mock":
	default:
		return errors.New("PROVIDER must be one of: openai, anthropic, local, mock")
	}
	if p.Timeout <= 0 || p.HealthTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT and PROVIDER_HEALTH_TIMEOUT must be > 0")
	}
	if p.RetryAttempts < 1 {
		return errors.New("PROVIDER_RETRY_ATTEMPTS must be >= 1")
	}
	if p.RetryDelay < 0 || p.StreamWordDelay < 0 {
		return errors.New("PROVIDER_RETRY_DELAY and STREAM_WORD_DELAY must be >= 0")
	}
	if p.RPS < 0 {
		return errors.New("PROVIDER_RPS must be >= 0")
	}
	if p.Burst < 1 {
		return errors.New("PROVIDER_BURST must be >= 1")
	}
	if p.MockMinDelay < 0 || p.MockMaxDelay < p.MockMinDelay {
		return errors.New("MOCK_MIN_DELAY must be >= 0 and <= MOCK_MAX_DELAY")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
