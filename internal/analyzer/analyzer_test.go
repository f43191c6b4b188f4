package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/uxlens/pagescope/internal/config"
	"github.com/uxlens/pagescope/internal/extract"
	"github.com/uxlens/pagescope/internal/types"
)

func testAnalyzer(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.Load()
	}
	return &Analyzer{cfg: cfg}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"url required", types.ErrURLRequired, types.CodeURLRequired},
		{"invalid url", fmt.Errorf("%w: bad", types.ErrInvalidURL), types.CodeURLInvalid},
		{"blocked scheme", types.ErrBlockedScheme, types.CodeURLBlocked},
		{"blocked host", types.ErrBlockedHost, types.CodeURLBlocked},
		{"private ip", types.ErrPrivateIPBlocked, types.CodeURLBlocked},
		{"domain not allowed", types.ErrDomainNotAllowed, types.CodeDomainNotAllowed},
		{"pool timeout", types.ErrPoolTimeout, types.CodePoolExhausted},
		{"navigation timeout", types.ErrNavigationTimeout, types.CodeTimeout},
		{"context deadline", context.DeadlineExceeded, types.CodeTimeout},
		{"navigation failure", fmt.Errorf("%w: net::ERR_NAME_NOT_RESOLVED", types.ErrNavigationFailed), types.CodeNavigationFailed},
		{"unknown", errors.New("boom"), types.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			if got.Code != tt.code {
				t.Errorf("Translate(%v).Code = %q, want %q", tt.err, got.Code, tt.code)
			}
		})
	}
}

func TestTranslatePreservesAnalysisError(t *testing.T) {
	orig := types.NewTimeoutError(context.DeadlineExceeded)
	if got := Translate(fmt.Errorf("wrapped: %w", orig)); got != orig {
		t.Error("Translate should return the original AnalysisError unchanged")
	}
}

func TestTranslateHidesInternalDetail(t *testing.T) {
	got := Translate(errors.New("pool handle 0x3f corrupted"))
	if got.Code != types.CodeInternalError {
		t.Fatalf("Code = %q, want INTERNAL_ERROR", got.Code)
	}
	if got.Message == "pool handle 0x3f corrupted" {
		t.Error("client-facing message must not contain the internal error text")
	}
}

func TestValidateTarget(t *testing.T) {
	cfg := config.Load()
	cfg.AllowedDomains = nil
	a := testAnalyzer(cfg)

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"empty", "", types.ErrURLRequired},
		{"blocked scheme via normalize", "file:///etc/passwd", types.ErrInvalidURL},
		{"localhost", "http://localhost:8080/", types.ErrBlockedHost},
		{"loopback ip", "http://127.0.0.1/", types.ErrBlockedHost},
		{"decimal-encoded loopback", "http://2130706433/", types.ErrBlockedHost},
		{"private range", "http://192.168.1.10/", types.ErrBlockedHost},
		{"metadata ip", "http://169.254.169.254/latest/meta-data/", types.ErrBlockedHost},
		{"public ip ok", "http://93.184.216.34/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.validateTarget(tt.url)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateTarget(%q) = %v, want nil", tt.url, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateTarget(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTargetNormalizesSchemelessInput(t *testing.T) {
	a := testAnalyzer(nil)
	got, err := a.validateTarget("93.184.216.34/page")
	if err != nil {
		t.Fatalf("validateTarget: %v", err)
	}
	if got != "https://93.184.216.34/page" {
		t.Errorf("normalized URL = %q, want https prefix", got)
	}
}

func TestValidateTargetPrivateNetworksAllowed(t *testing.T) {
	cfg := config.Load()
	cfg.AllowedDomains = nil
	cfg.AllowPrivateNetworks = true
	a := testAnalyzer(cfg)

	for _, url := range []string{"http://127.0.0.1:8080/", "http://192.168.1.10/", "http://localhost/"} {
		if _, err := a.validateTarget(url); err != nil {
			t.Errorf("validateTarget(%q) = %v, want nil with private networks allowed", url, err)
		}
	}

	// Structural validation still applies.
	if _, err := a.validateTarget("file:///etc/passwd"); !errors.Is(err, types.ErrInvalidURL) {
		t.Errorf("non-http scheme error = %v, want ErrInvalidURL", err)
	}
}

func TestValidateTargetAllowlist(t *testing.T) {
	cfg := config.Load()
	cfg.AllowedDomains = []string{"example.com"}
	a := testAnalyzer(cfg)

	if _, err := a.validateTarget("http://93.184.216.34/"); !errors.Is(err, types.ErrDomainNotAllowed) {
		t.Errorf("off-allowlist host error = %v, want ErrDomainNotAllowed", err)
	}
}

func TestScreenshotOptionsDefaults(t *testing.T) {
	cfg := config.Load()
	cfg.DefaultViewportWidth = 1280
	cfg.DefaultViewportHeight = 720
	a := testAnalyzer(cfg)

	got := a.screenshotOptions(nil)
	want := extract.ScreenshotOptions{Width: 1280, Height: 720, Format: types.FormatPNG}
	if got != want {
		t.Errorf("screenshotOptions(nil) = %+v, want %+v", got, want)
	}

	got = a.screenshotOptions(&types.AnalysisOptions{
		FullPageScreenshot: true,
		ScreenshotWidth:    800,
		ScreenshotFormat:   types.FormatJPEG,
		ScreenshotQuality:  60,
	})
	if !got.FullPage || got.Width != 800 || got.Height != 720 || got.Format != types.FormatJPEG || got.Quality != 60 {
		t.Errorf("screenshotOptions override = %+v", got)
	}
}
