package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/easyref/easyref-api/internal/api"
	"github.com/easyref/easyref-api/internal/api/handler"
	"github.com/easyref/easyref-api/internal/api/metrics"
	"github.com/easyref/easyref-api/internal/api/middleware"
	"github.com/easyref/easyref-api/internal/core/service"
	"github.com/easyref/easyref-api/internal/core/theme"
	"github.com/easyref/easyref-api/internal/infrastructure/db/redis"
	"github.com/easyref/easyref-api/internal/infrastructure/payments"
	"github.com/easyref/easyref-api/internal/infrastructure/queue"
	"github.com/easyref/easyref-api/internal/infrastructure/ratelimit"
	"github.com/easyref/easyref-api/internal/pkg/config"
	"github.com/easyref/easyref-api/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "easyref-api", Env: cfg.Env})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, logger.Component("backend"))
	if err != nil {
		return err
	}
	defer closeBackend()

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	profiles := service.NewProfileService(backend, redis.NewProfileCache(rdb, cfg.Redis.ProfileCacheTTL), logger.Component("profiles"))

	policy := theme.PreserveEdits
	if cfg.ThemePolicy == config.ThemeDiscard {
		policy = theme.DiscardEdits
	}
	registry := service.NewRegistry(backend, logger.Component("workspaces"),
		service.WithThemePolicy(policy),
		service.WithHooks(service.Hooks{
			OnThemeReset: func(string) { metrics.ThemeResetsTotal.Inc() },
			OnCommitted:  profiles.Invalidate,
		}),
	)
	metrics.TrackWorkspaces(registry.Len)
	go registry.Run(ctx, sweepInterval, cfg.WorkspaceIdleTTL)

	billing := service.NewBillingService(
		backend,
		payments.NewStripe(payments.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
		}, logger.Component("payments")),
		redis.NewDedupChecker(rdb, cfg.Redis.WebhookDedupTTL),
		service.BillingConfig{
			MonthlyPriceID: cfg.Stripe.MonthlyPriceID,
			YearlyPriceID:  cfg.Stripe.YearlyPriceID,
			SiteURL:        cfg.SiteURL,
		},
		logger.Component("billing"),
	)
	billing.OnTierChanged = func(ctx context.Context, profileID string) {
		p, err := backend.GetProfileByID(ctx, profileID)
		if err != nil {
			log.Warn().Err(err).Str("profile_id", profileID).Msg("reload after tier change failed")
			return
		}
		profiles.Invalidate(ctx, p)
		if ws, ok := registry.Lookup(profileID); ok {
			// A busy workspace picks the new tier up on its next request.
			_ = ws.Dispatch(service.SetProfile{Profile: p})
		}
	}

	dispatcher := queue.NewDispatcher(cfg.Stripe.Workers, metrics.InstrumentProcessor(billing), logger.Component("webhooks"))
	dispatcher.Start(ctx)

	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	go limiter.Run(time.Minute)
	defer limiter.Stop()

	verifier, err := middleware.NewTokenVerifier(middleware.AuthConfig{
		VerificationKey: cfg.Auth.VerificationKey,
		HMACSecret:      cfg.Auth.HMACSecret,
		Issuer:          cfg.Auth.Issuer,
		Audience:        cfg.Auth.AppID,
	})
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	e := api.NewRouter(api.Deps{
		Profiles:   profiles,
		Billing:    billing,
		Webhooks:   dispatcher,
		Workspaces: registry,
		Upgrades:   service.NewUpgradeWaiter(backend, cfg.Upgrade.Attempts, cfg.Upgrade.Interval, logger.Component("upgrades")),
		Verifier:   verifier,
		Limiter:    limiter,
		Checks: map[string]handler.CheckFunc{
			"backend": backend.Ping,
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.Backend).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
