// Package analyzer orchestrates the analysis pipeline: URL validation,
// browser lease, navigation, and the extraction fan-out.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/uxlens/pagescope/internal/browser"
	"github.com/uxlens/pagescope/internal/config"
	"github.com/uxlens/pagescope/internal/extract"
	"github.com/uxlens/pagescope/internal/metrics"
	"github.com/uxlens/pagescope/internal/security"
	"github.com/uxlens/pagescope/internal/selectors"
	"github.com/uxlens/pagescope/internal/types"
)

// BrowserPool is the browser lease surface the analyzer needs.
// *browser.Pool implements it.
type BrowserPool interface {
	Acquire(ctx context.Context) (*browser.Handle, error)
	Release(h *browser.Handle)
	OpenSession(ctx context.Context, h *browser.Handle, opts browser.SessionOptions) (*browser.Session, error)
	Status() types.PoolStatus
}

// Analyzer runs analysis requests against pooled browsers.
type Analyzer struct {
	pool BrowserPool
	cfg  *config.Config
	sel  *selectors.Manager
}

// New creates an Analyzer. The selector manager may be the embedded-only
// manager when no external selector file is configured.
func New(pool BrowserPool, cfg *config.Config, sel *selectors.Manager) *Analyzer {
	return &Analyzer{pool: pool, cfg: cfg, sel: sel}
}

// Analyze runs the full pipeline for one request: screenshot and
// metadata always, plus whichever optional extractors the request left
// enabled. Optional extractor failures degrade to an omitted section;
// screenshot or metadata failures fail the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, req *types.AnalyzeRequest) (*types.AnalysisResult, error) {
	started := time.Now()
	metrics.ActiveAnalyses.Inc()
	defer metrics.ActiveAnalyses.Dec()

	result := &types.AnalysisResult{}
	err := a.withPage(ctx, req, func(ctx context.Context, page *rod.Page, finalURL string) error {
		shot, err := extract.Screenshot(page, a.sel.Get().ConsentButtons, a.screenshotOptions(req.Options))
		if err != nil {
			return err
		}
		result.Screenshot = shot

		opts := req.Options
		g, gctx := errgroup.WithContext(ctx)
		gpage := page.Context(gctx)

		g.Go(func() error {
			meta, err := extract.Metadata(gpage)
			if err != nil {
				return err
			}
			result.Metadata = meta
			return nil
		})
		if opts.DomEnabled() {
			g.Go(func() error {
				dom, err := extract.Dom(gpage)
				if err != nil {
					log.Warn().Err(err).Msg("DOM analysis failed, omitting section")
					return nil
				}
				result.DomAnalysis = dom
				return nil
			})
		}
		if opts.AccessibilityEnabled() {
			g.Go(func() error {
				a11y, err := extract.Accessibility(gpage)
				if err != nil {
					log.Warn().Err(err).Msg("Accessibility audit failed, omitting section")
					return nil
				}
				result.Accessibility = a11y
				return nil
			})
		}
		if opts.PerformanceEnabled() {
			g.Go(func() error {
				perf, err := extract.Performance(gpage)
				if err != nil {
					log.Warn().Err(err).Msg("Performance collection failed, omitting section")
					return nil
				}
				result.Performance = perf
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		result.URL = finalURL
		result.AnalyzedAt = time.Now().UTC().Format(time.RFC3339)
		return nil
	})
	if err != nil {
		aerr := Translate(err)
		metrics.RecordAnalysis(aerr.Code, time.Since(started))
		return nil, aerr
	}

	metrics.RecordAnalysis("success", time.Since(started))
	log.Info().
		Str("url", security.SanitizeURLForLogging(result.URL)).
		Dur("duration", time.Since(started)).
		Msg("Analysis completed")
	return result, nil
}

// Screenshot runs the capture-only pipeline.
func (a *Analyzer) Screenshot(ctx context.Context, req *types.AnalyzeRequest) (*types.ScreenshotData, error) {
	started := time.Now()
	metrics.ActiveAnalyses.Inc()
	defer metrics.ActiveAnalyses.Dec()

	data := &types.ScreenshotData{}
	err := a.withPage(ctx, req, func(ctx context.Context, page *rod.Page, finalURL string) error {
		shot, err := extract.Screenshot(page, a.sel.Get().ConsentButtons, a.screenshotOptions(req.Options))
		if err != nil {
			return err
		}
		data.Screenshot = shot
		data.URL = finalURL
		data.AnalyzedAt = time.Now().UTC().Format(time.RFC3339)
		return nil
	})
	if err != nil {
		aerr := Translate(err)
		metrics.RecordAnalysis(aerr.Code, time.Since(started))
		return nil, aerr
	}

	metrics.RecordAnalysis("success", time.Since(started))
	return data, nil
}

// withPage validates the target URL, leases a browser, opens a session,
// navigates, and hands the context-bound page to fn. Lease and session
// are always returned, even when fn panics.
func (a *Analyzer) withPage(ctx context.Context, req *types.AnalyzeRequest, fn func(ctx context.Context, page *rod.Page, finalURL string) error) error {
	target, err := a.validateTarget(req.URL)
	if err != nil {
		return err
	}

	waitStart := time.Now()
	handle, err := a.pool.Acquire(ctx)
	metrics.PoolWaitDuration.Observe(time.Since(waitStart).Seconds())
	if err != nil {
		return err
	}
	defer a.pool.Release(handle)
	metrics.BrowserPoolAcquired.Inc()

	status := a.pool.Status()
	metrics.UpdatePoolMetrics(status.Total, status.Available)

	timeout := a.cfg.NavigationTimeout
	if req.Options != nil && req.Options.Timeout > 0 {
		timeout = time.Duration(req.Options.Timeout) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	width, height := a.cfg.DefaultViewportWidth, a.cfg.DefaultViewportHeight
	if req.Options != nil {
		if req.Options.ScreenshotWidth > 0 {
			width = req.Options.ScreenshotWidth
		}
		if req.Options.ScreenshotHeight > 0 {
			height = req.Options.ScreenshotHeight
		}
	}

	session, err := a.pool.OpenSession(ctx, handle, browser.SessionOptions{
		ViewportWidth:  width,
		ViewportHeight: height,
		Stealth:        a.cfg.StealthMode,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	waitForSelector := ""
	if req.Options != nil {
		waitForSelector = req.Options.WaitForSelector
	}
	if err := session.Navigate(ctx, target, waitForSelector); err != nil {
		log.Warn().
			Str("url", security.SanitizeURLForLogging(target)).
			Err(err).
			Msg("Navigation failed")
		return err
	}

	page := session.Page(ctx)
	finalURL := target
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return fn(ctx, page, finalURL)
}

// validateTarget normalizes the raw URL and applies the safety
// gauntlet: structural validity, scheme, blocked hosts, DNS-resolved
// private ranges, and the optional domain allowlist. The blocked-host
// and private-range checks are skipped when the deployment explicitly
// allows private targets; structure, scheme, and allowlist always apply.
func (a *Analyzer) validateTarget(raw string) (string, error) {
	if raw == "" {
		return "", types.ErrURLRequired
	}

	target := security.Normalize(raw)
	if !security.IsValidURL(target) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidURL, raw)
	}
	if !a.cfg.AllowPrivateNetworks {
		if security.IsBlockedURL(target) {
			return "", types.ErrBlockedHost
		}
		if err := security.ValidateURL(target); err != nil {
			return "", err
		}
	}
	if !security.CheckAllowedDomains(target, a.cfg.AllowedDomains) {
		return "", types.ErrDomainNotAllowed
	}
	return target, nil
}

// screenshotOptions maps request options onto capture options, filling
// defaults from config.
func (a *Analyzer) screenshotOptions(opts *types.AnalysisOptions) extract.ScreenshotOptions {
	so := extract.ScreenshotOptions{
		Width:  a.cfg.DefaultViewportWidth,
		Height: a.cfg.DefaultViewportHeight,
		Format: types.FormatPNG,
	}
	if opts == nil {
		return so
	}
	so.FullPage = opts.FullPageScreenshot
	if opts.ScreenshotWidth > 0 {
		so.Width = opts.ScreenshotWidth
	}
	if opts.ScreenshotHeight > 0 {
		so.Height = opts.ScreenshotHeight
	}
	if opts.ScreenshotFormat != "" {
		so.Format = opts.ScreenshotFormat
	}
	so.Quality = opts.ScreenshotQuality
	return so
}

// Translate maps pipeline errors onto the client-facing error taxonomy.
// Unrecognized errors become INTERNAL_ERROR so no internal detail leaks.
func Translate(err error) *types.AnalysisError {
	var aerr *types.AnalysisError
	if errors.As(err, &aerr) {
		return aerr
	}

	switch {
	case errors.Is(err, types.ErrURLRequired):
		return types.NewURLRequiredError()
	case errors.Is(err, types.ErrInvalidURL):
		return types.NewURLInvalidError(err)
	case errors.Is(err, types.ErrBlockedScheme),
		errors.Is(err, types.ErrBlockedHost),
		errors.Is(err, types.ErrPrivateIPBlocked):
		return types.NewURLBlockedError(err)
	case errors.Is(err, types.ErrDomainNotAllowed):
		return types.NewDomainNotAllowedError()
	case errors.Is(err, types.ErrPoolTimeout):
		return types.NewPoolExhaustedError(err)
	case errors.Is(err, types.ErrNavigationTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return types.NewTimeoutError(err)
	case errors.Is(err, types.ErrNavigationFailed):
		return types.NewNavigationError(err)
	default:
		return types.NewInternalError(err)
	}
}
