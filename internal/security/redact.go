package security

import (
	"net/url"
	"strings"
)

// sensitiveParams contains query parameter names that may contain secrets
// and should be redacted before a URL reaches the logs.
var sensitiveParams = []string{
	"key", "token", "api_key", "apikey", "password", "secret", "auth",
	"access_token", "refresh_token", "bearer", "credential", "private_key",
}

// SanitizeURLForLogging removes sensitive query parameters from URLs
// before logging. This prevents accidental exposure of API keys, tokens,
// and other secrets embedded in target-page URLs.
func SanitizeURLForLogging(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid-url]"
	}

	if parsed.RawQuery == "" {
		return rawURL
	}

	query := parsed.Query()
	redacted := false
	for _, param := range sensitiveParams {
		for key := range query {
			if strings.EqualFold(key, param) {
				query.Set(key, "[REDACTED]")
				redacted = true
			}
		}
	}

	if !redacted {
		return rawURL
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}
