package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roombook/booking-system/internal/api"
	"github.com/roombook/booking-system/internal/api/handler"
	"github.com/roombook/booking-system/internal/api/middleware"
	"github.com/roombook/booking-system/internal/core/ports"
	"github.com/roombook/booking-system/internal/core/service"
	"github.com/roombook/booking-system/internal/infrastructure/cache/memory"
	mongodb "github.com/roombook/booking-system/internal/infrastructure/db/mongo"
	redisstore "github.com/roombook/booking-system/internal/infrastructure/db/redis"
	"github.com/roombook/booking-system/internal/infrastructure/notify"
	"github.com/roombook/booking-system/internal/infrastructure/queue"
	"github.com/roombook/booking-system/internal/pkg/config"
	"github.com/roombook/booking-system/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "booking",
	})

	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  cfg.Mongo.AppName,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	users := mongodb.NewUserRepository(db)
	bookings := mongodb.NewBookingRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := bookings.EnsureIndexes(ctx); err != nil {
		return err
	}

	cache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// --- Notifications ---
	sender, err := openNotifier(cfg, log)
	if err != nil {
		return err
	}
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, sender, log)

	// --- Services ---
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	codes := service.NewVerificationService(cache, dispatcher, log)
	userService := service.NewUserService(users, codes, log)

	var frozen middleware.FrozenChecker
	if cfg.Auth.RecheckFrozen {
		frozen = userService
	}

	e := api.NewRouter(api.Dependencies{
		Auth:     service.NewAuthService(users, codes, tokens, log),
		Codes:    codes,
		Users:    userService,
		Bookings: service.NewBookingService(bookings, log),
		Tokens:   tokens,
		Frozen:   frozen,
		Health: map[string]handler.Pinger{
			"mongodb": mongodb.Pinger{Client: client},
			"cache":   cache,
		},
		CaptchaRate:  cfg.Auth.CaptchaRate,
		CaptchaBurst: cfg.Auth.CaptchaBurst,

		CodeAttemptRate:  cfg.Auth.CodeAttemptRate,
		CodeAttemptBurst: cfg.Auth.CodeAttemptBurst,

		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	// The dispatcher outlives the HTTP server so codes issued by in-flight
	// requests are still delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("cache", cfg.Cache.Driver).Str("notify", cfg.Notify.Driver).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := e.Shutdown(shutdownCtx)
		stopDispatch()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

func openCache(ctx context.Context, cfg *config.Config) (ports.CacheStore, func(), error) {
	if cfg.Cache.Driver == config.CacheMemory {
		return memory.New(), func() {}, nil
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return redisstore.NewCacheStore(rdb), func() { _ = rdb.Close() }, nil
}

func openNotifier(cfg *config.Config, log zerolog.Logger) (ports.Notifier, error) {
	if cfg.Notify.Driver != config.NotifySMTP {
		return notify.NewLogNotifier(log), nil
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		TLSMode:  cfg.SMTP.TLSMode,
		Timeout:  cfg.SMTP.Timeout,
	}, log)
}
