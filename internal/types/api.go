package types

import (
	"fmt"
	"strings"
)

// Request validation limits.
const (
	MaxURLLength         = 8192
	MaxSelectorLength    = 512
	MaxTimeoutMs         = 120000 // 2 minutes in milliseconds
	MaxViewportDimension = 4096
	MinViewportDimension = 100
)

// Screenshot format values.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// AnalyzeRequest represents an incoming analysis API request.
type AnalyzeRequest struct {
	URL     string           `json:"url"`
	Options *AnalysisOptions `json:"options,omitempty"`
}

// AnalysisOptions controls which extractors run and how the screenshot
// is captured. Nil pointer fields mean "use the default".
type AnalysisOptions struct {
	FullPageScreenshot bool   `json:"fullPageScreenshot,omitempty"`
	ScreenshotWidth    int    `json:"screenshotWidth,omitempty"`
	ScreenshotHeight   int    `json:"screenshotHeight,omitempty"`
	ScreenshotFormat   string `json:"screenshotFormat,omitempty"` // png (default) or jpeg
	ScreenshotQuality  int    `json:"screenshotQuality,omitempty"`
	WaitForSelector    string `json:"waitForSelector,omitempty"`
	Timeout            int    `json:"timeout,omitempty"` // navigation timeout in milliseconds

	// Feature toggles. Default is enabled; send explicit false to disable.
	IncludeDomAnalysis   *bool `json:"includeDomAnalysis,omitempty"`
	IncludeAccessibility *bool `json:"includeAccessibility,omitempty"`
	IncludePerformance   *bool `json:"includePerformance,omitempty"`
}

// DomEnabled reports whether DOM analysis should run.
func (o *AnalysisOptions) DomEnabled() bool {
	return o == nil || o.IncludeDomAnalysis == nil || *o.IncludeDomAnalysis
}

// AccessibilityEnabled reports whether the accessibility audit should run.
func (o *AnalysisOptions) AccessibilityEnabled() bool {
	return o == nil || o.IncludeAccessibility == nil || *o.IncludeAccessibility
}

// PerformanceEnabled reports whether performance collection should run.
func (o *AnalysisOptions) PerformanceEnabled() bool {
	return o == nil || o.IncludePerformance == nil || *o.IncludePerformance
}

// Validate validates the request and returns an error if invalid.
// URL safety (scheme, private ranges, allowlist) is checked separately by
// the security package; this only enforces structural limits.
func (r *AnalyzeRequest) Validate() error {
	if len(r.URL) > MaxURLLength {
		return fmt.Errorf("url exceeds maximum length of %d", MaxURLLength)
	}

	o := r.Options
	if o == nil {
		return nil
	}

	if o.ScreenshotWidth != 0 {
		if o.ScreenshotWidth < MinViewportDimension || o.ScreenshotWidth > MaxViewportDimension {
			return fmt.Errorf("screenshotWidth must be between %d and %d", MinViewportDimension, MaxViewportDimension)
		}
	}
	if o.ScreenshotHeight != 0 {
		if o.ScreenshotHeight < MinViewportDimension || o.ScreenshotHeight > MaxViewportDimension {
			return fmt.Errorf("screenshotHeight must be between %d and %d", MinViewportDimension, MaxViewportDimension)
		}
	}

	if o.ScreenshotFormat != "" {
		switch strings.ToLower(o.ScreenshotFormat) {
		case FormatPNG, FormatJPEG:
		default:
			return fmt.Errorf("screenshotFormat must be %q or %q", FormatPNG, FormatJPEG)
		}
	}

	if o.ScreenshotQuality < 0 || o.ScreenshotQuality > 100 {
		return fmt.Errorf("screenshotQuality must be between 0 and 100")
	}

	if len(o.WaitForSelector) > MaxSelectorLength {
		return fmt.Errorf("waitForSelector exceeds maximum length of %d", MaxSelectorLength)
	}

	if o.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if o.Timeout > MaxTimeoutMs {
		return fmt.Errorf("timeout exceeds maximum of %d ms", MaxTimeoutMs)
	}

	return nil
}

// APIResponse is the envelope for all API responses.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError carries the client-facing error code and message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScreenshotData is the response payload for the screenshot-only endpoint.
type ScreenshotData struct {
	URL        string            `json:"url"`
	AnalyzedAt string            `json:"analyzedAt"`
	Screenshot *ScreenshotResult `json:"screenshot"`
}

// HealthStatus is the payload for the basic health endpoint.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

// PoolStatus reports browser pool occupancy for health checks.
type PoolStatus struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Busy      int `json:"busy"`
}

// MemoryStatus reports process heap usage in megabytes.
type MemoryStatus struct {
	UsedMB     uint64 `json:"used"`
	TotalMB    uint64 `json:"total"`
	Percentage int    `json:"percentage"`
}

// DetailedHealth is the payload for the detailed health endpoint.
type DetailedHealth struct {
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	BrowserPool   PoolStatus   `json:"browserPool"`
	Memory        MemoryStatus `json:"memory"`
	UptimeSeconds int64        `json:"uptime"`
}
