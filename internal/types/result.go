package types

// Result payload caps. Sampling takes the first N elements in document
// order, so output is deterministic for a given page state.
const (
	MaxInteractiveElements = 50
	MaxImageSamples        = 30
	MaxReportedIssues      = 50
)

// AnalysisResult is the composite output of one analysis run.
// Screenshot and metadata are always present; the optional sections are
// present iff their feature toggle was enabled and extraction succeeded.
type AnalysisResult struct {
	URL           string               `json:"url"`
	AnalyzedAt    string               `json:"analyzedAt"`
	Screenshot    *ScreenshotResult    `json:"screenshot"`
	Metadata      *MetadataResult      `json:"metadata"`
	DomAnalysis   *DomAnalysisResult   `json:"domAnalysis,omitempty"`
	Accessibility *AccessibilityResult `json:"accessibility,omitempty"`
	Performance   *PerformanceResult   `json:"performance,omitempty"`
}

// ScreenshotResult holds the captured image and its reported dimensions.
// Width/height reflect the requested viewport, or the full scrollable
// document size when a full-page capture was requested.
type ScreenshotResult struct {
	Base64    string `json:"base64"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int    `json:"sizeBytes"`
}

// MetadataResult holds document metadata extracted from the page head.
type MetadataResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
	URL         string `json:"url"`
	Favicon     string `json:"favicon,omitempty"`
	Lang        string `json:"lang,omitempty"`
}

// BoundingBox is an element's rendered rectangle in CSS pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// InteractiveElement describes one sampled interactive element.
type InteractiveElement struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	Selector    string       `json:"selector"`
	BoundingBox *BoundingBox `json:"boundingBox"` // nil if zero-sized or not rendered
}

// HeadingElement is one document heading.
type HeadingElement struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ImageElement is one sampled image.
type ImageElement struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	HasAlt bool   `json:"hasAlt"`
}

// FormElement summarizes one form.
type FormElement struct {
	Action     string `json:"action"`
	Method     string `json:"method"`
	InputCount int    `json:"inputCount"`
}

// LandmarkElement records presence of one semantic page region.
type LandmarkElement struct {
	Type   string `json:"type"`
	Exists bool   `json:"exists"`
}

// DomAnalysisResult is the structural summary of the document.
type DomAnalysisResult struct {
	TotalElements       int                  `json:"totalElements"`
	InteractiveElements []InteractiveElement `json:"interactiveElements"`
	Headings            []HeadingElement     `json:"headings"`
	Forms               []FormElement        `json:"forms"`
	Images              []ImageElement       `json:"images"`
	Landmarks           []LandmarkElement    `json:"landmarks"`
}

// Accessibility issue type tags.
const (
	IssueMissingAlt   = "missing-alt"
	IssueEmptyAlt     = "empty-alt"
	IssueMissingLabel = "missing-label"
	IssueHeadingOrder = "heading-order"
	IssueHeadingSkip  = "heading-skip"
	IssueMultipleH1   = "multiple-h1"
	IssueEmptyLink    = "empty-link"
	IssueEmptyButton  = "empty-button"
)

// Accessibility issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// AccessibilityIssue is one finding from the audit rule set.
type AccessibilityIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Element  string `json:"element"`
	Message  string `json:"message"`
}

// AccessibilityResult holds the audit score and findings. IssueCount is
// the true uncapped total; Issues is truncated to MaxReportedIssues.
type AccessibilityResult struct {
	Score      int                  `json:"score"`
	IssueCount int                  `json:"issueCount"`
	Issues     []AccessibilityIssue `json:"issues"`
}

// WebVitals holds Core Web Vitals approximations in milliseconds.
// CLS requires an observer attached from navigation start and is never
// populated by the post-navigation collector.
type WebVitals struct {
	LCP *float64 `json:"lcp,omitempty"`
	CLS *float64 `json:"cls,omitempty"`
	FCP *float64 `json:"fcp,omitempty"`
}

// PerformanceResult aggregates navigation and resource timing.
type PerformanceResult struct {
	LoadTimeMs        int       `json:"loadTime"`
	DomContentLoaded  int       `json:"domContentLoaded"`
	ResourceCount     int       `json:"resourceCount"`
	TotalResourceSize int       `json:"totalResourceSize"`
	Metrics           WebVitals `json:"metrics"`
}
