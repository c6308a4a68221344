package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidConfig         = errors.New("invalid config")
)

// EnvPrefix namespaces environment overrides. A double underscore separates
// levels, so IMAGEGATE_MODERATION__HAMMING_THRESHOLD sets moderation.hamming_threshold.
const EnvPrefix = "IMAGEGATE_"

// Current version of each config file.
const (
	CurrentCommonVersion     = 1
	CurrentModerationVersion = 1
	CurrentAPIVersion        = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common     CommonConfig     `koanf:"common"`
	Moderation ModerationConfig `koanf:"moderation"`
	API        APIConfig        `koanf:"api"`
}

// CommonConfig contains configuration shared between services.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Telemetry  Telemetry  `koanf:"telemetry"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Also write logs to stderr.
	Console bool `koanf:"console"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Use the in-memory store instead of PostgreSQL.
	InMemory bool `koanf:"in_memory"`
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Require TLS.
	TLS bool `koanf:"tls"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Disable the digest cache.
	Disabled bool `koanf:"disabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
	// Turn off client-side caching, for servers without CLIENT TRACKING.
	DisableClientCache bool `koanf:"disable_client_cache"`
}

// Telemetry contains tracing configuration.
type Telemetry struct {
	// Uptrace DSN; tracing is disabled when empty.
	UptraceDSN string `koanf:"uptrace_dsn"`
	// Service name reported to the tracing backend.
	ServiceName string `koanf:"service_name"`
	// Deployment environment reported to the tracing backend.
	Environment string `koanf:"environment"`
}

// ModerationConfig contains the decision engine settings.
type ModerationConfig struct {
	// Version of the moderation config.
	Version int `koanf:"version"`
	// Maximum Hamming distance for a near-duplicate match.
	HammingThreshold int `koanf:"hamming_threshold"`
	// Number of recent uploads scanned per prefix bucket.
	BucketScanLimit int `koanf:"bucket_scan_limit"`
	// Score at or above which a trigger forbids the upload.
	ForbiddenThreshold float64 `koanf:"forbidden_threshold"`
	// Score at or above which a trigger is suggested.
	SuggestThreshold float64 `koanf:"suggest_threshold"`
	// Score at or above which a signal is logged.
	MediumLogThreshold float64 `koanf:"medium_log_threshold"`
	// Rejected appeals before a cooldown starts.
	FalseAppealThreshold int `koanf:"false_appeal_threshold"`
	// Cooldown length in days.
	CooldownDays int `koanf:"cooldown_days"`
	// Moderator lock TTL in seconds.
	LockTTL int `koanf:"lock_ttl"`
	// Per-scorer timeout in milliseconds.
	ScorerTimeout int `koanf:"scorer_timeout"`
	// Digest cache TTL in hours.
	DigestCacheTTL int `koanf:"digest_cache_ttl"`
	// Overall budget for one moderation call in seconds.
	RequestTimeout int    `koanf:"request_timeout"`
	Vision         Vision `koanf:"vision"`
	LLM            LLM    `koanf:"llm"`
}

// Vision contains Cloud Vision settings.
type Vision struct {
	// Enable the safe-search and label scorers.
	Enabled bool `koanf:"enabled"`
	// API key; application default credentials are used when empty.
	APIKey string `koanf:"api_key"`
	// Optional endpoint override.
	Endpoint string `koanf:"endpoint"`
	// Maximum labels requested per image.
	MaxLabels int64 `koanf:"max_labels"`
}

// LLM contains the optional classifier settings.
type LLM struct {
	// Enable the LLM scorer.
	Enabled bool `koanf:"enabled"`
	// Model identifier.
	Model string `koanf:"model"`
	// Region label; informational unless an endpoint is set.
	Region string `koanf:"region"`
	// API key.
	APIKey string `koanf:"api_key"`
	// Optional endpoint override.
	Endpoint string `koanf:"endpoint"`
	// Sampling temperature.
	Temperature float32 `koanf:"temperature"`
	// Maximum concurrent requests.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// Longest image side sent to the model.
	MaxImageSide int `koanf:"max_image_side"`
}

// APIConfig contains the REST server settings.
type APIConfig struct {
	// Version of the API config.
	Version int    `koanf:"version"`
	Server  Server `koanf:"server"`
	Auth    Auth   `koanf:"auth"`
	// Per-client rate limiting.
	RateLimit RateLimit `koanf:"rate_limit"`
}

// Server contains listener settings.
type Server struct {
	// Host to bind.
	Host string `koanf:"host"`
	// Port to bind.
	Port int `koanf:"port"`
	// Maximum request body in bytes.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
	// Trust X-Forwarded-For and similar headers.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

// Auth contains bearer token verification settings.
type Auth struct {
	// HMAC secret used to verify tokens.
	JWTSecret string `koanf:"jwt_secret"`
	// Expected issuer; not checked when empty.
	Issuer string `koanf:"issuer"`
	// Role claim value that grants moderator access.
	ModeratorRole string `koanf:"moderator_role"`
}

// RateLimit contains per-client rate limiting settings.
type RateLimit struct {
	// Sustained requests per second.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	// Burst size.
	BurstSize int `koanf:"burst_size"`
	// Strikes before a client is blocked.
	MaxStrikes int `koanf:"max_strikes"`
	// Block duration in seconds.
	BlockDuration int `koanf:"block_duration"`
}

// defaults seeds every key so that partial files and env-only deployments work.
var defaults = map[string]any{
	"common.version":                       CurrentCommonVersion,
	"common.debug.log_level":               "info",
	"common.debug.max_logs_to_keep":        10,
	"common.debug.max_log_lines":           100000,
	"common.postgresql.host":               "localhost",
	"common.postgresql.port":               5432,
	"common.postgresql.user":               "postgres",
	"common.postgresql.db_name":            "imagegate",
	"common.postgresql.max_open_conns":     20,
	"common.postgresql.max_idle_conns":     10,
	"common.postgresql.max_lifetime":       30,
	"common.postgresql.max_idle_time":      5,
	"common.redis.host":                    "localhost",
	"common.redis.port":                    6379,
	"common.telemetry.service_name":        "imagegate",
	"common.telemetry.environment":         "development",
	"moderation.version":                   CurrentModerationVersion,
	"moderation.hamming_threshold":         8,
	"moderation.bucket_scan_limit":         25,
	"moderation.forbidden_threshold":       0.7,
	"moderation.suggest_threshold":         0.45,
	"moderation.medium_log_threshold":      0.55,
	"moderation.false_appeal_threshold":    2,
	"moderation.cooldown_days":             7,
	"moderation.lock_ttl":                  300,
	"moderation.scorer_timeout":            10000,
	"moderation.digest_cache_ttl":          72,
	"moderation.request_timeout":           30,
	"moderation.vision.enabled":            true,
	"moderation.vision.max_labels":         20,
	"moderation.llm.enabled":               false,
	"moderation.llm.model":                 "gemini-2.0-flash",
	"moderation.llm.region":                "us-central1",
	"moderation.llm.temperature":           0.2,
	"moderation.llm.max_concurrent":        4,
	"moderation.llm.max_image_side":        512,
	"api.version":                          CurrentAPIVersion,
	"api.server.host":                      "0.0.0.0",
	"api.server.port":                      8080,
	"api.server.max_body_bytes":            10 << 20,
	"api.auth.moderator_role":              "moderator",
	"api.rate_limit.requests_per_second":   2,
	"api.rate_limit.burst_size":            10,
	"api.rate_limit.max_strikes":           10,
	"api.rate_limit.block_duration":        300,
}

// LoadConfig loads defaults, then common.toml, moderation.toml and api.toml
// from the first search path containing each, then environment overrides.
// Returns the config along with the directory the first file was read from.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadFrom([]string{
		".imagegate",
		homeDir + "/.imagegate/config",
		"/etc/imagegate/config",
		"/app/config",
		"config",
		".",
	})
}

// LoadFrom is LoadConfig with explicit search paths.
func LoadFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	var usedConfigPath string
	loaded := make(map[string]bool)

	for _, configName := range []string{"common", "moderation", "api"} {
		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if _, err := os.Stat(configPath); err != nil {
				continue
			}

			fileConf := koanf.New(".")
			if err := fileConf.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, "", fmt.Errorf("failed to parse %s: %w", configPath, err)
			}
			if !fileConf.Exists("version") {
				return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, configName)
			}
			if err := k.MergeAt(fileConf, configName); err != nil {
				return nil, "", fmt.Errorf("failed to merge %s: %w", configPath, err)
			}

			loaded[configName] = true
			if usedConfigPath == "" {
				usedConfigPath = path
			}
			break
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	versions := []struct {
		name              string
		current, expected int
	}{
		{"common", config.Common.Version, CurrentCommonVersion},
		{"moderation", config.Moderation.Version, CurrentModerationVersion},
		{"api", config.API.Version, CurrentAPIVersion},
	}
	for _, v := range versions {
		if !loaded[v.name] {
			continue
		}
		if err := checkConfigVersion(v.name, v.current, v.expected); err != nil {
			return nil, "", err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	m := c.Moderation
	switch {
	case m.HammingThreshold < 0 || m.HammingThreshold > 64:
		return fmt.Errorf("%w: hamming_threshold must be within 0..64", ErrInvalidConfig)
	case m.BucketScanLimit <= 0:
		return fmt.Errorf("%w: bucket_scan_limit must be positive", ErrInvalidConfig)
	case m.SuggestThreshold > m.ForbiddenThreshold:
		return fmt.Errorf("%w: suggest_threshold exceeds forbidden_threshold", ErrInvalidConfig)
	case m.FalseAppealThreshold <= 0:
		return fmt.Errorf("%w: false_appeal_threshold must be positive", ErrInvalidConfig)
	case m.CooldownDays < 0:
		return fmt.Errorf("%w: cooldown_days must not be negative", ErrInvalidConfig)
	case m.LockTTL <= 0:
		return fmt.Errorf("%w: lock_ttl must be positive", ErrInvalidConfig)
	case m.ScorerTimeout <= 0:
		return fmt.Errorf("%w: scorer_timeout must be positive", ErrInvalidConfig)
	case m.RequestTimeout <= 0:
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	case m.DigestCacheTTL < 0:
		return fmt.Errorf("%w: digest_cache_ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf("%w: %s.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, name, current, expected)
	}

	return nil
}
