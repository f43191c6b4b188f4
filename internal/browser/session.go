package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/types"
)

const (
	// networkIdleWindow is how long the network must be quiet after load
	// before navigation is considered settled.
	networkIdleWindow = 500 * time.Millisecond

	// selectorWaitTimeout bounds the optional wait-for-selector step.
	// A missing selector never fails the session.
	selectorWaitTimeout = 5 * time.Second
)

// SessionOptions controls page creation for one analysis request.
type SessionOptions struct {
	ViewportWidth  int
	ViewportHeight int
	Stealth        bool
}

// Session is a single page borrowed from a leased browser handle. It
// holds one of the pool's global page slots for its lifetime, so opening
// a session can block when too many pages are already open.
//
// Sessions are not safe for concurrent use and must be closed exactly once.
type Session struct {
	page *rod.Page
	pool *Pool
	done bool
}

// OpenSession creates a fresh page on the leased handle with the viewport
// applied before any navigation. The caller must Close() the session on
// every exit path.
func (p *Pool) OpenSession(ctx context.Context, h *Handle, opts SessionOptions) (*Session, error) {
	if err := p.pageSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for page slot: %w", err)
	}

	page, err := h.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		p.pageSem.Release(1)
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			log.Warn().Err(err).Msg("Failed to inject stealth script, continuing without")
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		_ = page.Close()
		p.pageSem.Release(1)
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return &Session{page: page, pool: p}, nil
}

// Page returns the session's page bound to ctx. Operations on the
// returned page abort when ctx is canceled or its deadline passes.
func (s *Session) Page(ctx context.Context) *rod.Page {
	return s.page.Context(ctx)
}

// Navigate loads the target URL and waits for the load event plus a
// quiet network window. If waitForSelector is non-empty the session
// additionally waits (bounded, best effort) for that element to appear.
func (s *Session) Navigate(ctx context.Context, url, waitForSelector string) error {
	page := s.page.Context(ctx)

	// The idle watcher must be registered before navigation starts or
	// requests fired during load are missed.
	waitIdle := page.WaitRequestIdle(networkIdleWindow, nil, nil, nil)

	if err := page.Navigate(url); err != nil {
		return wrapNavError(ctx, err)
	}
	if err := page.WaitLoad(); err != nil {
		return wrapNavError(ctx, err)
	}
	waitIdle()
	if err := ctx.Err(); err != nil {
		return wrapNavError(ctx, err)
	}

	if waitForSelector != "" {
		if _, err := page.Timeout(selectorWaitTimeout).Element(waitForSelector); err != nil {
			log.Debug().
				Str("selector", waitForSelector).
				Err(err).
				Msg("Wait-for-selector did not match, continuing")
		}
	}

	return nil
}

// Close tears down the page and returns its slot. The original page
// reference is used rather than a context-bound one so cleanup still
// runs after the request context expired.
func (s *Session) Close() {
	if s.done {
		return
	}
	s.done = true

	if err := s.page.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close page session")
	}
	s.pool.pageSem.Release(1)
}

// wrapNavError maps low-level navigation failures onto the sentinel
// errors the pipeline's taxonomy is built from.
func wrapNavError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrNavigationTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("navigation canceled: %w", err)
	}
	return fmt.Errorf("%w: %v", types.ErrNavigationFailed, err)
}
