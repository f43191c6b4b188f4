package config

import (
	"os"
	"testing"
	"time"

	"github.com/uxlens/pagescope/internal/types"
)

var configEnvVars = []string{
	"HOST", "PORT", "HEADLESS", "BROWSER_PATH", "STEALTH_MODE",
	"BROWSER_POOL_SIZE", "BROWSER_POOL_TIMEOUT",
	"MAX_REQUESTS_PER_BROWSER", "MAX_BROWSER_AGE", "MAX_CONCURRENT_PAGES",
	"NAVIGATION_TIMEOUT", "DEFAULT_VIEWPORT_WIDTH", "DEFAULT_VIEWPORT_HEIGHT",
	"ALLOWED_DOMAINS", "LOG_LEVEL",
	"METRICS_ENABLED", "METRICS_PORT",
	"PPROF_ENABLED", "PPROF_PORT", "PPROF_BIND_ADDR",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "TRUST_PROXY",
	"CORS_ALLOWED_ORIGINS", "API_KEY_ENABLED", "API_KEY",
	"CONSENT_SELECTORS_PATH", "CONSENT_HOT_RELOAD",
}

func clearConfigEnv() {
	for _, env := range configEnvVars {
		os.Unsetenv(env)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv()

	cfg := Load()

	// Server defaults
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host '127.0.0.1', got %q", cfg.Host)
	}
	if cfg.Port != 3001 {
		t.Errorf("Expected default port 3001, got %d", cfg.Port)
	}

	// Browser defaults
	if !cfg.Headless {
		t.Error("Expected Headless to be true by default")
	}
	if cfg.StealthMode {
		t.Error("Expected StealthMode to be false by default")
	}

	// Pool defaults
	if cfg.BrowserPoolSize != 3 {
		t.Errorf("Expected default pool size 3, got %d", cfg.BrowserPoolSize)
	}
	if cfg.BrowserPoolTimeout != 30*time.Second {
		t.Errorf("Expected default pool timeout 30s, got %v", cfg.BrowserPoolTimeout)
	}
	if cfg.MaxRequestsPerBrowser != 100 {
		t.Errorf("Expected default max requests per browser 100, got %d", cfg.MaxRequestsPerBrowser)
	}
	if cfg.MaxBrowserAge != time.Hour {
		t.Errorf("Expected default max browser age 1h, got %v", cfg.MaxBrowserAge)
	}
	if cfg.MaxConcurrentPages != 5 {
		t.Errorf("Expected default max concurrent pages 5, got %d", cfg.MaxConcurrentPages)
	}

	// Analysis defaults
	if cfg.NavigationTimeout != 30*time.Second {
		t.Errorf("Expected default navigation timeout 30s, got %v", cfg.NavigationTimeout)
	}
	if cfg.DefaultViewportWidth != 1280 || cfg.DefaultViewportHeight != 720 {
		t.Errorf("Expected default viewport 1280x720, got %dx%d",
			cfg.DefaultViewportWidth, cfg.DefaultViewportHeight)
	}
	if cfg.HasAllowlist() {
		t.Error("Expected no domain allowlist by default")
	}

	// Logging defaults
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.LogLevel)
	}

	// Metrics defaults
	if cfg.MetricsEnabled {
		t.Error("Expected MetricsEnabled to be false by default")
	}
	if cfg.MetricsPort != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.MetricsPort)
	}

	// Security defaults
	if !cfg.RateLimitEnabled {
		t.Error("Expected RateLimitEnabled to be true by default")
	}
	if cfg.RateLimitRPM != 20 {
		t.Errorf("Expected default rate limit 20 RPM, got %d", cfg.RateLimitRPM)
	}
	if cfg.APIKeyEnabled {
		t.Error("Expected APIKeyEnabled to be false by default")
	}
	if cfg.PProfEnabled {
		t.Error("Expected PProfEnabled to be false by default")
	}
	if cfg.AllowPrivateNetworks {
		t.Error("Expected AllowPrivateNetworks to be false by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("HOST", "0.0.0.0")
	os.Setenv("PORT", "9999")
	os.Setenv("HEADLESS", "false")
	os.Setenv("STEALTH_MODE", "true")
	os.Setenv("BROWSER_POOL_SIZE", "5")
	os.Setenv("BROWSER_POOL_TIMEOUT", "1m")
	os.Setenv("MAX_REQUESTS_PER_BROWSER", "50")
	os.Setenv("MAX_BROWSER_AGE", "2h")
	os.Setenv("MAX_CONCURRENT_PAGES", "10")
	os.Setenv("NAVIGATION_TIMEOUT", "45s")
	os.Setenv("DEFAULT_VIEWPORT_WIDTH", "1920")
	os.Setenv("DEFAULT_VIEWPORT_HEIGHT", "1080")
	os.Setenv("ALLOWED_DOMAINS", "example.com, example.org")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("METRICS_ENABLED", "true")
	os.Setenv("METRICS_PORT", "9191")
	os.Setenv("RATE_LIMIT_RPM", "120")
	os.Setenv("TRUST_PROXY", "true")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
	os.Setenv("API_KEY_ENABLED", "true")
	os.Setenv("API_KEY", "secret")
	defer clearConfigEnv()

	cfg := Load()

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got %q", cfg.Host)
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", cfg.Port)
	}
	if cfg.Headless {
		t.Error("Expected Headless to be false")
	}
	if !cfg.StealthMode {
		t.Error("Expected StealthMode to be true")
	}
	if cfg.BrowserPoolSize != 5 {
		t.Errorf("Expected pool size 5, got %d", cfg.BrowserPoolSize)
	}
	if cfg.BrowserPoolTimeout != time.Minute {
		t.Errorf("Expected pool timeout 1m, got %v", cfg.BrowserPoolTimeout)
	}
	if cfg.MaxRequestsPerBrowser != 50 {
		t.Errorf("Expected max requests per browser 50, got %d", cfg.MaxRequestsPerBrowser)
	}
	if cfg.MaxBrowserAge != 2*time.Hour {
		t.Errorf("Expected max browser age 2h, got %v", cfg.MaxBrowserAge)
	}
	if cfg.MaxConcurrentPages != 10 {
		t.Errorf("Expected max concurrent pages 10, got %d", cfg.MaxConcurrentPages)
	}
	if cfg.NavigationTimeout != 45*time.Second {
		t.Errorf("Expected navigation timeout 45s, got %v", cfg.NavigationTimeout)
	}
	if cfg.DefaultViewportWidth != 1920 || cfg.DefaultViewportHeight != 1080 {
		t.Errorf("Expected viewport 1920x1080, got %dx%d",
			cfg.DefaultViewportWidth, cfg.DefaultViewportHeight)
	}
	if len(cfg.AllowedDomains) != 2 || cfg.AllowedDomains[0] != "example.com" || cfg.AllowedDomains[1] != "example.org" {
		t.Errorf("Expected allowlist [example.com example.org], got %v", cfg.AllowedDomains)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %q", cfg.LogLevel)
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected MetricsEnabled to be true")
	}
	if cfg.MetricsPort != 9191 {
		t.Errorf("Expected metrics port 9191, got %d", cfg.MetricsPort)
	}
	if cfg.RateLimitRPM != 120 {
		t.Errorf("Expected rate limit 120 RPM, got %d", cfg.RateLimitRPM)
	}
	if !cfg.TrustProxy {
		t.Error("Expected TrustProxy to be true")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("Expected CORS origins [https://app.example.com], got %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.APIKeyEnabled || cfg.APIKey != "secret" {
		t.Errorf("Expected API key enabled with key 'secret', got %v %q", cfg.APIKeyEnabled, cfg.APIKey)
	}
}

func TestInvalidEnvValues(t *testing.T) {
	os.Setenv("PORT", "not_a_number")
	os.Setenv("HEADLESS", "not_a_bool")
	os.Setenv("NAVIGATION_TIMEOUT", "not_a_duration")
	os.Setenv("MAX_BROWSER_AGE", "-1h")
	defer clearConfigEnv()

	cfg := Load()

	if cfg.Port != 3001 {
		t.Errorf("Expected default port 3001 for invalid value, got %d", cfg.Port)
	}
	if !cfg.Headless {
		t.Error("Expected default Headless (true) for invalid value")
	}
	if cfg.NavigationTimeout != 30*time.Second {
		t.Errorf("Expected default navigation timeout for invalid value, got %v", cfg.NavigationTimeout)
	}
	if cfg.MaxBrowserAge != time.Hour {
		t.Errorf("Expected default max browser age for negative value, got %v", cfg.MaxBrowserAge)
	}
}

func TestValidateClampsOutOfRangeValues(t *testing.T) {
	cfg := &Config{
		Port:                  -1,
		BrowserPoolSize:       100,
		BrowserPoolTimeout:    10 * time.Minute,
		MaxRequestsPerBrowser: 0,
		MaxBrowserAge:         time.Second,
		MaxConcurrentPages:    500,
		NavigationTimeout:     10 * time.Minute,
		DefaultViewportWidth:  99999,
		DefaultViewportHeight: 10,
		LogLevel:              "verbose",
		RateLimitEnabled:      true,
		RateLimitRPM:          1000000,
	}

	cfg.Validate()

	if cfg.Port != 3001 {
		t.Errorf("Expected port reset to 3001, got %d", cfg.Port)
	}
	if cfg.BrowserPoolSize != maxBrowserPoolSize {
		t.Errorf("Expected pool size capped to %d, got %d", maxBrowserPoolSize, cfg.BrowserPoolSize)
	}
	if cfg.BrowserPoolTimeout != maxPoolTimeout {
		t.Errorf("Expected pool timeout capped to %v, got %v", maxPoolTimeout, cfg.BrowserPoolTimeout)
	}
	if cfg.MaxRequestsPerBrowser != 100 {
		t.Errorf("Expected max requests reset to 100, got %d", cfg.MaxRequestsPerBrowser)
	}
	if cfg.MaxBrowserAge != time.Hour {
		t.Errorf("Expected max browser age reset to 1h, got %v", cfg.MaxBrowserAge)
	}
	if cfg.MaxConcurrentPages != maxConcurrentPagesLimit {
		t.Errorf("Expected max concurrent pages capped to %d, got %d", maxConcurrentPagesLimit, cfg.MaxConcurrentPages)
	}
	if cfg.NavigationTimeout != maxNavigationTimeout {
		t.Errorf("Expected navigation timeout capped to %v, got %v", maxNavigationTimeout, cfg.NavigationTimeout)
	}
	if cfg.DefaultViewportWidth != 1280 {
		t.Errorf("Expected viewport width reset to 1280, got %d", cfg.DefaultViewportWidth)
	}
	if cfg.DefaultViewportHeight != 720 {
		t.Errorf("Expected viewport height reset to 720, got %d", cfg.DefaultViewportHeight)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level reset to 'info', got %q", cfg.LogLevel)
	}
	if cfg.RateLimitRPM != maxRateLimitRPM {
		t.Errorf("Expected rate limit capped to %d, got %d", maxRateLimitRPM, cfg.RateLimitRPM)
	}
}

func TestRequestBudgetCoversClientTimeoutCeiling(t *testing.T) {
	clearConfigEnv()
	cfg := Load()
	cfg.Validate()

	ceiling := time.Duration(types.MaxTimeoutMs) * time.Millisecond
	if got := cfg.RequestBudget(); got < ceiling {
		t.Errorf("RequestBudget() = %v, must cover the largest requestable timeout %v", got, ceiling)
	}

	// A longer navigation timeout raises the budget with it.
	cfg.NavigationTimeout = ceiling + time.Minute
	if got := cfg.RequestBudget(); got != cfg.NavigationTimeout {
		t.Errorf("RequestBudget() = %v, want %v when NavigationTimeout exceeds the ceiling", got, cfg.NavigationTimeout)
	}
}

func TestValidateRejectsPathTraversal(t *testing.T) {
	cfg := Load()
	cfg.BrowserPath = "/usr/bin/../../etc/passwd"
	cfg.ConsentSelectorsPath = "../selectors.yaml"
	cfg.Validate()

	if cfg.BrowserPath != "" {
		t.Errorf("Expected BrowserPath cleared, got %q", cfg.BrowserPath)
	}
	if cfg.ConsentSelectorsPath != "" {
		t.Errorf("Expected ConsentSelectorsPath cleared, got %q", cfg.ConsentSelectorsPath)
	}
}

func TestValidateNormalizesAllowlist(t *testing.T) {
	cfg := Load()
	cfg.AllowedDomains = []string{" Example.COM", ".sub.example.org "}
	cfg.Validate()

	if cfg.AllowedDomains[0] != "example.com" {
		t.Errorf("Expected 'example.com', got %q", cfg.AllowedDomains[0])
	}
	if cfg.AllowedDomains[1] != "sub.example.org" {
		t.Errorf("Expected 'sub.example.org', got %q", cfg.AllowedDomains[1])
	}
}

func TestValidateDisablesHotReloadWithoutPath(t *testing.T) {
	cfg := Load()
	cfg.ConsentHotReload = true
	cfg.ConsentSelectorsPath = ""
	cfg.Validate()

	if cfg.ConsentHotReload {
		t.Error("Expected hot-reload disabled when no selectors path is set")
	}
}
