// Package browser provides browser pool management for efficient resource usage.
// The pool maintains a fixed number of browser instances that are reused across
// analysis requests, avoiding the cost of spawning a new browser per request.
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/uxlens/pagescope/internal/config"
	"github.com/uxlens/pagescope/internal/metrics"
	"github.com/uxlens/pagescope/internal/types"
)

// Handle is one pooled browser instance plus its lease metadata.
// The pool owns every handle; callers borrow via Acquire and must return
// it with Release. A handle is leased to at most one caller at a time.
type Handle struct {
	browser      *rod.Browser
	inUse        bool
	requestCount int
	createdAt    time.Time
	connected    bool
}

// Browser returns the underlying rod browser for page creation.
func (h *Handle) Browser() *rod.Browser {
	return h.browser
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Acquired int64
	Released int64
	Recycled int64
	Errors   int64
}

// Pool manages a fixed-size set of reusable browser instances.
//
// Lock ordering: mu guards the handle slice and all handle fields.
// Never hold mu while performing slow I/O (launch, close, CDP calls);
// a handle is reserved (inUse=true) before any slow operation on it.
type Pool struct {
	mu      sync.Mutex
	handles []*Handle
	cfg     *config.Config
	closed  atomic.Bool

	// waitCh is closed and replaced on every release so blocked
	// acquirers can rescan the pool.
	waitCh chan struct{}

	// pageSem bounds concurrently open pages across all requests.
	pageSem *semaphore.Weighted

	stopCh chan struct{}
	wg     sync.WaitGroup

	acquired atomic.Int64
	released atomic.Int64
	recycled atomic.Int64
	errors   atomic.Int64
}

// NewPool creates a browser pool and pre-warms it by launching the
// configured number of browsers sequentially. This blocks until all
// browsers are ready or an error occurs; on error the partially built
// pool is cleaned up.
func NewPool(cfg *config.Config) (*Pool, error) {
	log.Info().
		Int("pool_size", cfg.BrowserPoolSize).
		Bool("headless", cfg.Headless).
		Str("browser_path", cfg.BrowserPath).
		Msg("Initializing browser pool")

	pool := &Pool{
		cfg:     cfg,
		handles: make([]*Handle, 0, cfg.BrowserPoolSize),
		waitCh:  make(chan struct{}),
		pageSem: semaphore.NewWeighted(int64(cfg.MaxConcurrentPages)),
		stopCh:  make(chan struct{}),
	}

	for i := 0; i < cfg.BrowserPoolSize; i++ {
		b, err := pool.spawnBrowser(context.Background())
		if err != nil {
			log.Error().Err(err).Int("browser_index", i).Msg("Failed to spawn browser during pool initialization")
			if closeErr := pool.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Failed to close pool during cleanup")
			}
			return nil, fmt.Errorf("failed to spawn browser %d: %w", i, err)
		}
		pool.handles = append(pool.handles, &Handle{
			browser:   b,
			createdAt: time.Now(),
			connected: true,
		})
		log.Debug().Int("browser_index", i).Msg("Browser spawned and added to pool")
	}

	pool.wg.Add(1)
	go func() {
		defer pool.wg.Done()
		pool.livenessSweep()
	}()

	log.Info().Int("pool_size", cfg.BrowserPoolSize).Msg("Browser pool initialized")
	return pool, nil
}

// createLauncher creates a configured rod launcher. Flags are tuned for
// container environments: no sandbox, shared-memory workaround, and no
// first-run dialogs that would hang a headless capture.
func (p *Pool) createLauncher() *launcher.Launcher {
	l := launcher.New()

	if p.cfg.BrowserPath != "" {
		l = l.Bin(p.cfg.BrowserPath)
	}

	if p.cfg.Headless {
		l = l.Set("headless", "new")
	} else {
		l = l.Headless(false)
	}

	l = l.Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu-sandbox")

	l = l.Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-infobars").
		Set("disable-extensions").
		Set("disable-default-apps").
		Set("disable-background-networking").
		Set("disable-sync").
		Set("mute-audio")

	l = l.Set("accept-lang", "en-US,en;q=0.9")
	l = l.Set("window-size", fmt.Sprintf("%d,%d", p.cfg.DefaultViewportWidth, p.cfg.DefaultViewportHeight))

	return l
}

// spawnBrowser launches a new browser instance and connects to it via CDP.
// Each call creates a fresh launcher since launchers can only be used once.
func (p *Pool) spawnBrowser(ctx context.Context) (*rod.Browser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	log.Debug().Msg("Spawning new browser instance")

	l := p.createLauncher()
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.Debug().Str("url", u).Msg("Browser spawned")
	return b, nil
}

// Acquire obtains an exclusive lease on a browser handle. It blocks until
// a handle is available, the context is canceled, or the pool timeout is
// reached - acquisition never waits unbounded.
//
// A candidate handle that has served MaxRequestsPerBrowser leases, has
// exceeded MaxBrowserAge, or has lost its process connection is retired
// and replaced synchronously before being leased.
//
// The caller MUST call Release() when done:
//
//	handle, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(handle)
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	deadline := time.NewTimer(p.cfg.BrowserPoolTimeout)
	defer deadline.Stop()

	for {
		if p.closed.Load() {
			return nil, types.ErrPoolClosed
		}

		p.mu.Lock()
		var candidate *Handle
		for _, h := range p.handles {
			if !h.inUse && h.connected {
				candidate = h
				break
			}
		}
		var stale *Handle
		if candidate == nil {
			// A disconnected idle handle is replaced lazily, right here.
			for _, h := range p.handles {
				if !h.inUse && !h.connected {
					stale = h
					break
				}
			}
			candidate = stale
		}

		if candidate != nil {
			// Reserve before any slow I/O so no other caller can lease it.
			candidate.inUse = true
			needsRecycle := stale != nil ||
				candidate.requestCount >= p.cfg.MaxRequestsPerBrowser ||
				time.Since(candidate.createdAt) > p.cfg.MaxBrowserAge
			p.mu.Unlock()

			if !needsRecycle && !p.isHealthy(candidate.browser) {
				log.Warn().Msg("Pooled browser failed health check, recycling before lease")
				needsRecycle = true
			}

			if needsRecycle {
				if err := p.recycleHandle(ctx, candidate); err != nil {
					p.errors.Add(1)
					p.unreserve(candidate)
					return nil, err
				}
			}

			p.mu.Lock()
			candidate.requestCount++
			p.mu.Unlock()

			p.acquired.Add(1)
			log.Debug().
				Int64("total_acquired", p.acquired.Load()).
				Msg("Browser acquired from pool")
			return candidate, nil
		}

		waitCh := p.waitCh
		p.mu.Unlock()

		select {
		case <-waitCh:
			// A handle was released; rescan.
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire canceled: %w", ctx.Err())
		case <-deadline.C:
			p.errors.Add(1)
			return nil, types.ErrPoolTimeout
		case <-p.stopCh:
			return nil, types.ErrPoolClosed
		}
	}
}

// Release returns a leased handle to the pool. It is a no-op if the
// handle is nil or no longer tracked (already retired), so it is always
// safe to call on every exit path.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}

	// Discard leftover pages so reused browsers do not accumulate DOM
	// memory across requests.
	cleanupFailed := false
	if h.connected {
		pages, err := h.browser.Pages()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to list pages during release, browser may be unhealthy")
			cleanupFailed = true
		} else {
			for _, page := range pages {
				if err := page.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close page during release")
					cleanupFailed = true
				}
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	found := false
	for _, entry := range p.handles {
		if entry == h {
			found = true
			break
		}
	}
	if !found {
		log.Debug().Msg("Released handle not tracked by pool, ignoring")
		return
	}

	h.inUse = false
	if cleanupFailed {
		// Replaced synchronously on the next acquire attempt.
		h.connected = false
	}
	p.released.Add(1)
	p.signalWaiters()

	log.Debug().
		Int64("total_released", p.released.Load()).
		Msg("Browser released to pool")
}

// unreserve undoes a reservation after a failed recycle and wakes waiters.
func (p *Pool) unreserve(h *Handle) {
	p.mu.Lock()
	h.inUse = false
	h.connected = false
	p.signalWaiters()
	p.mu.Unlock()
}

// signalWaiters wakes all blocked acquirers. Callers must hold mu.
func (p *Pool) signalWaiters() {
	close(p.waitCh)
	p.waitCh = make(chan struct{})
}

// recycleHandle replaces the reserved handle's browser process with a
// fresh one and resets its counters. The handle stays reserved
// throughout, so no other caller can observe the intermediate state.
func (p *Pool) recycleHandle(ctx context.Context, h *Handle) error {
	p.recycled.Add(1)
	metrics.BrowserPoolRecycled.Inc()
	log.Info().
		Int("request_count", h.requestCount).
		Dur("age", time.Since(h.createdAt)).
		Int64("total_recycled", p.recycled.Load()).
		Msg("Recycling browser")

	if err := h.browser.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing browser during recycle")
	}

	b, err := p.spawnBrowser(ctx)
	if err != nil {
		return fmt.Errorf("failed to spawn replacement browser: %w", err)
	}

	p.mu.Lock()
	h.browser = b
	h.createdAt = time.Now()
	h.requestCount = 0
	h.connected = true
	p.mu.Unlock()
	return nil
}

// isHealthy checks that a browser still responds over CDP.
func (p *Pool) isHealthy(b *rod.Browser) bool {
	if _, err := (proto.BrowserGetVersion{}).Call(b); err != nil {
		log.Debug().Err(err).Msg("Browser health check failed")
		return false
	}
	return true
}

// livenessSweep periodically probes idle browsers and marks dead ones
// disconnected. Disconnected handles are not removed; the next acquire
// replaces them lazily.
func (p *Pool) livenessSweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("Liveness sweep stopping")
			return
		case <-ticker.C:
			if p.closed.Load() {
				return
			}

			p.mu.Lock()
			idle := make([]*Handle, 0, len(p.handles))
			for _, h := range p.handles {
				if !h.inUse && h.connected {
					idle = append(idle, h)
				}
			}
			p.mu.Unlock()

			for _, h := range idle {
				if !p.isHealthy(h.browser) {
					log.Warn().Msg("Idle browser lost its process, marking disconnected")
					p.mu.Lock()
					if !h.inUse {
						h.connected = false
					}
					p.mu.Unlock()
				}
			}
		}
	}
}

// AcquirePageSlot blocks until a page slot is available, bounding the
// number of concurrently open pages across all requests.
func (p *Pool) AcquirePageSlot(ctx context.Context) error {
	return p.pageSem.Acquire(ctx, 1)
}

// ReleasePageSlot returns a page slot.
func (p *Pool) ReleasePageSlot() {
	p.pageSem.Release(1)
}

// Size returns the configured pool size.
func (p *Pool) Size() int {
	return p.cfg.BrowserPoolSize
}

// Status reports pool occupancy for health checks. Available counts
// handles that are neither leased nor disconnected.
func (p *Pool) Status() types.PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := types.PoolStatus{Total: len(p.handles)}
	for _, h := range p.handles {
		switch {
		case h.inUse:
			s.Busy++
		case h.connected:
			s.Available++
		}
	}
	return s
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Acquired: p.acquired.Load(),
		Released: p.released.Load(),
		Recycled: p.recycled.Load(),
		Errors:   p.errors.Load(),
	}
}

// Close shuts down the pool and releases all resources. After Close,
// Acquire returns ErrPoolClosed. Close is safe to call multiple times;
// individual browser close errors are logged and ignored.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	log.Info().Msg("Closing browser pool")
	close(p.stopCh)
	p.wg.Wait()

	p.mu.Lock()
	handles := p.handles
	p.handles = nil
	p.signalWaiters()
	p.mu.Unlock()

	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, h := range handles {
		b := h.browser
		eg.Go(func() error {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing browser during pool shutdown")
			}
			return nil
		})
	}
	_ = eg.Wait()

	log.Info().
		Int64("total_acquired", p.acquired.Load()).
		Int64("total_released", p.released.Load()).
		Int64("total_recycled", p.recycled.Load()).
		Msg("Browser pool closed")
	return nil
}
