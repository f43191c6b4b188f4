// Package config provides application configuration management.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/types"
)

// Configuration upper bounds to prevent resource exhaustion.
const (
	maxBrowserPoolSize      = 20
	maxConcurrentPagesLimit = 50
	maxNavigationTimeout    = 2 * time.Minute
	maxPoolTimeout          = 5 * time.Minute
	maxRateLimitRPM         = 10000
	maxViewportDimension    = 4096
)

// Config holds all application configuration.
// Configuration is loaded from environment variables at startup.
type Config struct {
	// Server settings
	Host string
	Port int

	// Browser settings
	Headless    bool
	BrowserPath string
	StealthMode bool

	// Pool settings
	BrowserPoolSize       int
	BrowserPoolTimeout    time.Duration
	MaxRequestsPerBrowser int
	MaxBrowserAge         time.Duration
	MaxConcurrentPages    int

	// Analysis settings
	NavigationTimeout     time.Duration
	DefaultViewportWidth  int
	DefaultViewportHeight int
	AllowedDomains        []string

	// Logging
	LogLevel string

	// Metrics
	MetricsEnabled bool
	MetricsPort    int

	// Profiling
	PProfEnabled  bool
	PProfPort     int
	PProfBindAddr string

	// Security
	RateLimitEnabled   bool
	RateLimitRPM       int
	TrustProxy         bool
	CORSAllowedOrigins []string
	APIKeyEnabled      bool
	APIKey             string

	// AllowPrivateNetworks disables the private/internal target checks
	// so the service can analyze pages on internal networks. Never
	// enable this on an internet-facing deployment.
	AllowPrivateNetworks bool

	// Consent selector overrides
	ConsentSelectorsPath string
	ConsentHotReload     bool
}

// Load loads configuration from environment variables.
// Returns a Config with values from environment or sensible defaults.
func Load() *Config {
	return &Config{
		// Server - default to localhost for security (prevents accidental exposure)
		// Set HOST=0.0.0.0 explicitly to bind to all interfaces
		Host: getEnvString("HOST", "127.0.0.1"),
		Port: getEnvInt("PORT", 3001),

		// Browser
		Headless:    getEnvBool("HEADLESS", true),
		BrowserPath: getEnvString("BROWSER_PATH", ""),
		StealthMode: getEnvBool("STEALTH_MODE", false),

		// Pool
		BrowserPoolSize:       getEnvInt("BROWSER_POOL_SIZE", 3),
		BrowserPoolTimeout:    getEnvDuration("BROWSER_POOL_TIMEOUT", 30*time.Second),
		MaxRequestsPerBrowser: getEnvInt("MAX_REQUESTS_PER_BROWSER", 100),
		MaxBrowserAge:         getEnvDuration("MAX_BROWSER_AGE", time.Hour),
		MaxConcurrentPages:    getEnvInt("MAX_CONCURRENT_PAGES", 5),

		// Analysis
		NavigationTimeout:     getEnvDuration("NAVIGATION_TIMEOUT", 30*time.Second),
		DefaultViewportWidth:  getEnvInt("DEFAULT_VIEWPORT_WIDTH", 1280),
		DefaultViewportHeight: getEnvInt("DEFAULT_VIEWPORT_HEIGHT", 720),
		AllowedDomains:        getEnvStringSlice("ALLOWED_DOMAINS", nil),

		// Logging
		LogLevel: getEnvString("LOG_LEVEL", "info"),

		// Metrics - disabled by default
		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsPort:    getEnvInt("METRICS_PORT", 9090),

		// Profiling - disabled by default for security
		PProfEnabled:  getEnvBool("PPROF_ENABLED", false),
		PProfPort:     getEnvInt("PPROF_PORT", 6060),
		PProfBindAddr: getEnvString("PPROF_BIND_ADDR", "127.0.0.1"),

		// Security
		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", 20),
		TrustProxy:         getEnvBool("TRUST_PROXY", false),
		CORSAllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", nil),
		APIKeyEnabled:      getEnvBool("API_KEY_ENABLED", false),
		APIKey:             getEnvString("API_KEY", ""),

		AllowPrivateNetworks: getEnvBool("ALLOW_PRIVATE_NETWORKS", false),

		// Consent selectors
		ConsentSelectorsPath: getEnvString("CONSENT_SELECTORS_PATH", ""),
		ConsentHotReload:     getEnvBool("CONSENT_HOT_RELOAD", false),
	}
}

// HasAllowlist returns true if a domain allowlist is configured.
func (c *Config) HasAllowlist() bool {
	return len(c.AllowedDomains) > 0
}

// RequestBudget returns the longest a single request may validly run:
// the larger of the configured navigation timeout and the per-request
// timeout ceiling clients can ask for. Outer HTTP timeouts must be
// derived from this, not from NavigationTimeout alone, or a validated
// options.timeout gets cut off mid-flight.
func (c *Config) RequestBudget() time.Duration {
	ceiling := time.Duration(types.MaxTimeoutMs) * time.Millisecond
	if c.NavigationTimeout > ceiling {
		return c.NavigationTimeout
	}
	return ceiling
}

// Validate checks configuration values and logs warnings for invalid values.
// Invalid values are corrected to sensible defaults.
func (c *Config) Validate() {
	// Port validation - allow 0 for system-assigned ports
	if c.Port < 0 || c.Port > 65535 {
		log.Warn().Int("port", c.Port).Msg("Invalid port, using default 3001")
		c.Port = 3001
	}

	// BrowserPath validation - prevent path traversal
	if c.BrowserPath != "" && strings.Contains(c.BrowserPath, "..") {
		log.Error().
			Str("path", c.BrowserPath).
			Msg("BrowserPath contains path traversal sequence (..), ignoring")
		c.BrowserPath = ""
	}

	// Pool size validation with upper bound
	if c.BrowserPoolSize < 1 {
		log.Warn().Int("size", c.BrowserPoolSize).Msg("Invalid pool size, using default 3")
		c.BrowserPoolSize = 3
	} else if c.BrowserPoolSize > maxBrowserPoolSize {
		log.Warn().
			Int("size", c.BrowserPoolSize).
			Int("max", maxBrowserPoolSize).
			Msg("Pool size too large, capping to maximum")
		c.BrowserPoolSize = maxBrowserPoolSize
	}

	// Pool timeout validation (minimum 1 second, maximum 5 minutes)
	if c.BrowserPoolTimeout < time.Second {
		log.Warn().
			Dur("timeout", c.BrowserPoolTimeout).
			Msg("Browser pool timeout too short, using minimum 1s")
		c.BrowserPoolTimeout = time.Second
	} else if c.BrowserPoolTimeout > maxPoolTimeout {
		log.Warn().
			Dur("timeout", c.BrowserPoolTimeout).
			Dur("max", maxPoolTimeout).
			Msg("Browser pool timeout too long, capping to maximum")
		c.BrowserPoolTimeout = maxPoolTimeout
	}

	// Recycle thresholds
	if c.MaxRequestsPerBrowser < 1 {
		log.Warn().Int("max", c.MaxRequestsPerBrowser).Msg("Invalid max requests per browser, using 100")
		c.MaxRequestsPerBrowser = 100
	}
	if c.MaxBrowserAge < time.Minute {
		log.Warn().Dur("age", c.MaxBrowserAge).Msg("Max browser age too short, using 1h")
		c.MaxBrowserAge = time.Hour
	}

	// Concurrent pages bound
	if c.MaxConcurrentPages < 1 {
		log.Warn().Int("pages", c.MaxConcurrentPages).Msg("Invalid max concurrent pages, using 5")
		c.MaxConcurrentPages = 5
	} else if c.MaxConcurrentPages > maxConcurrentPagesLimit {
		log.Warn().
			Int("pages", c.MaxConcurrentPages).
			Int("max", maxConcurrentPagesLimit).
			Msg("Max concurrent pages too high, capping to maximum")
		c.MaxConcurrentPages = maxConcurrentPagesLimit
	}

	// Navigation timeout validation
	if c.NavigationTimeout < time.Second {
		log.Warn().Dur("timeout", c.NavigationTimeout).Msg("Navigation timeout too short, using 30s")
		c.NavigationTimeout = 30 * time.Second
	} else if c.NavigationTimeout > maxNavigationTimeout {
		log.Warn().
			Dur("timeout", c.NavigationTimeout).
			Dur("max", maxNavigationTimeout).
			Msg("Navigation timeout too long, capping to maximum")
		c.NavigationTimeout = maxNavigationTimeout
	}

	// Viewport validation
	if c.DefaultViewportWidth < 100 || c.DefaultViewportWidth > maxViewportDimension {
		log.Warn().Int("width", c.DefaultViewportWidth).Msg("Invalid viewport width, using 1280")
		c.DefaultViewportWidth = 1280
	}
	if c.DefaultViewportHeight < 100 || c.DefaultViewportHeight > maxViewportDimension {
		log.Warn().Int("height", c.DefaultViewportHeight).Msg("Invalid viewport height, using 720")
		c.DefaultViewportHeight = 720
	}

	// Rate limit validation with upper bound
	if c.RateLimitEnabled {
		if c.RateLimitRPM < 1 {
			log.Warn().Int("rpm", c.RateLimitRPM).Msg("Invalid rate limit, using 20 RPM")
			c.RateLimitRPM = 20
		} else if c.RateLimitRPM > maxRateLimitRPM {
			log.Warn().
				Int("rpm", c.RateLimitRPM).
				Int("max", maxRateLimitRPM).
				Msg("Rate limit too high, capping to maximum")
			c.RateLimitRPM = maxRateLimitRPM
		}
	}

	// Log level validation
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		log.Warn().Str("level", c.LogLevel).Msg("Invalid log level, using 'info'")
		c.LogLevel = "info"
	}

	// PProf security warning
	if c.PProfEnabled && c.PProfBindAddr != "127.0.0.1" && c.PProfBindAddr != "localhost" {
		log.Warn().
			Str("addr", c.PProfBindAddr).
			Msg("WARNING: pprof exposed on non-localhost address - this is a security risk")
	}

	// CORS warning
	if len(c.CORSAllowedOrigins) == 0 {
		log.Warn().Msg("CORS_ALLOWED_ORIGINS not set - all cross-origin requests will be rejected")
	}

	// Normalize allowlist entries to lowercase without leading dots
	for i, d := range c.AllowedDomains {
		c.AllowedDomains[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
	}

	if c.AllowPrivateNetworks {
		log.Warn().Msg("WARNING: ALLOW_PRIVATE_NETWORKS is enabled - private and internal addresses can be analyzed")
	}

	// API key validation
	if c.APIKeyEnabled && c.APIKey == "" {
		log.Error().Msg("API_KEY_ENABLED is true but API_KEY is empty - authentication will always fail")
	}

	// Consent selectors path validation
	if c.ConsentSelectorsPath != "" && strings.Contains(c.ConsentSelectorsPath, "..") {
		log.Error().
			Str("path", c.ConsentSelectorsPath).
			Msg("ConsentSelectorsPath contains path traversal sequence (..), ignoring")
		c.ConsentSelectorsPath = ""
	}
	if c.ConsentHotReload && c.ConsentSelectorsPath == "" {
		log.Warn().Msg("CONSENT_HOT_RELOAD enabled but CONSENT_SELECTORS_PATH not set - hot-reload disabled")
		c.ConsentHotReload = false
	}
	if c.ConsentHotReload && c.ConsentSelectorsPath != "" {
		if _, err := os.Stat(c.ConsentSelectorsPath); os.IsNotExist(err) {
			log.Warn().
				Str("path", c.ConsentSelectorsPath).
				Msg("ConsentSelectorsPath does not exist - hot-reload will watch for file creation")
		}
	}
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			return int(intValue)
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Int("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Bool("default", defaultValue).
			Msg("Invalid boolean in environment variable, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			if duration > 0 {
				return duration
			}
			log.Warn().
				Str("key", key).
				Str("value", value).
				Dur("default", defaultValue).
				Msg("Duration must be positive, using default")
			return defaultValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Dur("default", defaultValue).
			Msg("Invalid duration in environment variable, using default")
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
