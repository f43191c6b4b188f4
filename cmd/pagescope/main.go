// Package main provides the entry point for PageScope.
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Import for side effects - registers pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/analyzer"
	"github.com/uxlens/pagescope/internal/browser"
	"github.com/uxlens/pagescope/internal/config"
	"github.com/uxlens/pagescope/internal/handlers"
	"github.com/uxlens/pagescope/internal/metrics"
	"github.com/uxlens/pagescope/internal/middleware"
	"github.com/uxlens/pagescope/internal/selectors"
	"github.com/uxlens/pagescope/pkg/version"
)

func main() {
	cfg := config.Load()

	// Logging first so validation warnings are visible
	setupLogging(cfg.LogLevel)
	cfg.Validate()

	printBanner()

	log.Info().Msg("Initializing browser pool...")
	pool, err := browser.NewPool(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize browser pool")
	}

	selectorMgr, err := selectors.NewManager(cfg.ConsentSelectorsPath, cfg.ConsentHotReload)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize selector manager")
	}

	a := analyzer.New(pool, cfg, selectorMgr)
	handler := handlers.New(a, pool, cfg)
	mux := handlers.NewRouter(handler)

	// Middleware chain, outermost first:
	// Recovery > Logging > Timeout > RateLimit > APIKey > CORS > SecurityHeaders
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery,
		middleware.Logging,
		middleware.Timeout(cfg.RequestBudget() + 30*time.Second),
	}

	var rateLimiter *middleware.RateLimiterMiddleware
	if cfg.RateLimitEnabled {
		log.Info().
			Int("requests_per_minute", cfg.RateLimitRPM).
			Bool("trust_proxy", cfg.TrustProxy).
			Msg("Rate limiting enabled")
		rateLimiter = middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.TrustProxy)
		chain = append(chain, rateLimiter.Handler())
	}

	chain = append(chain,
		middleware.APIKey(cfg),
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins}),
		middleware.SecurityHeaders,
	)

	finalHandler := middleware.Chain(chain...)(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      finalHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestBudget() + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopCh := make(chan struct{})

	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metrics.SetBuildInfo(version.Full(), version.GoVersion())
		go metrics.StartMemoryCollector(10*time.Second, stopCh)

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())

		metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		go func() {
			log.Info().Int("port", cfg.MetricsPort).Msg("Prometheus metrics server started")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// pprof exposes runtime internals and must stay off outside debugging.
	var pprofServer *http.Server
	if cfg.PProfEnabled {
		pprofAddr := fmt.Sprintf("%s:%d", cfg.PProfBindAddr, cfg.PProfPort)
		pprofServer = &http.Server{
			Addr:         pprofAddr,
			Handler:      http.DefaultServeMux, // pprof registers to DefaultServeMux
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
		}

		go func() {
			log.Warn().
				Str("addr", pprofAddr).
				Msg("WARNING: pprof profiling server started - exposes runtime internals, use for debugging only")
			if err := pprofServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("pprof server failed")
			}
		}()
	}

	go func() {
		log.Info().
			Str("address", addr).
			Int("pool_size", cfg.BrowserPoolSize).
			Bool("metrics_enabled", cfg.MetricsEnabled).
			Bool("rate_limit_enabled", cfg.RateLimitEnabled).
			Msg("PageScope is ready to accept requests")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	close(stopCh)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}
	if pprofServer != nil {
		if err := pprofServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("pprof server shutdown error")
		}
	}

	if rateLimiter != nil {
		rateLimiter.Close()
	}
	if err := selectorMgr.Close(); err != nil {
		log.Error().Err(err).Msg("Selector manager close error")
	}
	if err := pool.Close(); err != nil {
		log.Error().Err(err).Msg("Browser pool close error")
	}

	log.Info().Msg("Shutdown complete")
}

// setupLogging configures zerolog based on the log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// printBanner prints the startup banner.
func printBanner() {
	banner := `
 ____                  ____
|  _ \ __ _  __ _  ___/ ___|  ___ ___  _ __   ___
| |_) / _' |/ _' |/ _ \___ \ / __/ _ \| '_ \ / _ \
|  __/ (_| | (_| |  __/___) | (_| (_) | |_) |  __/
|_|   \__,_|\__, |\___|____/ \___\___/| .__/ \___|
            |___/                     |_|
`
	fmt.Println(banner)
	log.Info().
		Str("version", version.Full()).
		Str("go_version", version.GoVersion()).
		Msg("Starting PageScope")
}
