// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/warbler/docs" // generated swagger docs

	"github.com/tomtom215/warbler/internal/api"
	"github.com/tomtom215/warbler/internal/auth"
	"github.com/tomtom215/warbler/internal/authz"
	"github.com/tomtom215/warbler/internal/bookmarks"
	"github.com/tomtom215/warbler/internal/config"
	"github.com/tomtom215/warbler/internal/engagement"
	"github.com/tomtom215/warbler/internal/graph"
	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/store"
	"github.com/tomtom215/warbler/internal/supervisor"
	"github.com/tomtom215/warbler/internal/supervisor/services"
	"github.com/tomtom215/warbler/internal/sweep"
	"github.com/tomtom215/warbler/internal/timeline"
	"github.com/tomtom215/warbler/internal/tweets"
	"github.com/tomtom215/warbler/internal/users"
	ws "github.com/tomtom215/warbler/internal/websocket"
)

// gcDiscardRatio is passed to Badger's value log GC.
const gcDiscardRatio = 0.5

//nolint:gocyclo // sequential startup
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("store_path", cfg.Store.Path).
		Bool("store_in_memory", cfg.Store.InMemory).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("notify_backend", cfg.Notify.Backend).
		Msg("Starting Warbler with supervisor tree")

	// === RECORD STORE ===
	opts := store.DefaultOptions(cfg.Store.Path)
	opts.InMemory = cfg.Store.InMemory
	opts.SyncWrites = cfg.Store.SyncWrites
	opts.CommitTimeout = cfg.Store.CommitTimeout
	db, err := store.Open(opts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing record store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === CASCADE SWEEP ===
	sweepCfg := sweep.DefaultConfig()
	sweepCfg.BatchSize = cfg.Sweep.BatchSize
	sweepCfg.RatePerSecond = cfg.Sweep.RatePerSecond
	sweepCfg.Interval = cfg.Sweep.Interval
	sweepCfg.MaxAttempts = cfg.Sweep.MaxAttempts
	sweeper := sweep.New(db, sweepCfg)

	// Finish what a previous process left in the journal before serving.
	if err := sweeper.Recover(ctx); err != nil {
		logging.Warn().Err(err).Msg("Some sweeps are still pending; the retry loop will continue them")
	}

	// === NOTIFICATIONS ===
	wsHub := ws.NewHub()
	notifier, err := InitNotify(cfg, wsHub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize notifications")
	}
	defer notifier.Shutdown(context.Background())

	// === DOMAIN SERVICES ===
	userSvc := users.New(db, notifier.Bridge)
	deps := api.Deps{
		Store:    db,
		Users:    userSvc,
		Graph:    graph.New(db, notifier.Bridge),
		Ledger:   engagement.New(db, notifier.Bridge),
		Timeline: timeline.New(db),
		Tweets: tweets.New(db, sweeper, notifier.Bridge, tweets.Config{
			InlineLimit:         cfg.Sweep.InlineLimit,
			BookmarkInlineLimit: cfg.Sweep.BookmarkInlineLimit,
			FullScanVerify:      cfg.Sweep.FullScanVerify,
		}),
		Bookmarks: bookmarks.New(db, notifier.Bridge),
		Sweeper:   sweeper,
		Hub:       wsHub,
	}

	// === AUTHENTICATION & AUTHORIZATION ===
	enforcerCfg := authz.DefaultEnforcerConfig()
	enforcerCfg.PolicyPath = cfg.Security.PolicyPath
	enforcer, err := authz.NewEnforcer(enforcerCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization policy")
	}

	mode, err := auth.ParseAuthMode(cfg.Security.AuthMode)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid auth mode")
	}
	authenticator, err := auth.NewAuthenticator(mode, cfg.Security.JWTSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}
	if mode == auth.AuthModeNone {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  The actor is taken from the X-Actor-Email header.")
		logging.Warn().Msg("  Use only for local development.")
		logging.Warn().Msg("============================================================")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins outside development")
	}

	// === HTTP ===
	handler := api.NewHandler(deps, cfg)
	router := api.NewRouter(
		handler,
		auth.NewMiddleware(authenticator, userSvc, enforcer, api.AuthError),
		authz.NewMiddleware(enforcer, api.Forbidden),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)),
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Data layer
	if !db.InMemory() {
		tree.AddDataService(services.NewFuncService("store-gc", func(ctx context.Context) error {
			return db.GCLoop(ctx, cfg.Store.GCInterval, gcDiscardRatio)
		}))
	}
	if cfg.Sweep.Enabled {
		tree.AddDataService(services.NewLoopService("sweep-retry", sweep.NewRetryLoop(sweeper)))
	} else {
		logging.Warn().Msg("Sweep retry loop disabled (SWEEP_ENABLED=false); journaled sweeps run only at startup")
	}

	// Messaging layer
	tree.AddMessagingService(wsHub)
	notifier.AddToSupervisor(tree)

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Application stopped gracefully")
}
