package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmehdipour/order-sms/internal/config"
	"github.com/jmehdipour/order-sms/internal/db"
	"github.com/jmehdipour/order-sms/internal/dispatcher"
	httpSrv "github.com/jmehdipour/order-sms/internal/http"
	"github.com/jmehdipour/order-sms/internal/logger"
	"github.com/jmehdipour/order-sms/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger.Init(cfg.Log.Level, cfg.Log.Encoding)
		log := logger.Log
		defer func() { _ = log.Sync() }()

		provs, err := buildProviders(cfg.Providers)
		if err != nil {
			return err
		}
		notifier := worker.NewNotifier(dispatcher.NewDispatcher(provs), log)
		defer notifier.Close()

		var redisClient *redis.Client
		if cfg.Redis.Addr != "" && cfg.RateLimit.RPS > 0 {
			redisClient, err = db.NewRedisClient(cmd.Context(), db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
		}

		server := httpSrv.NewServer(cfg, notifier, redisClient, log)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		log.Info("listening for incoming webhooks",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("path", cfg.HTTP.WebhookPath),
			zap.Bool("enforce", cfg.Webhook.Enforce),
			zap.Int("providers", len(provs)),
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)

		if err := notifier.Wait(ctx); err != nil {
			log.Warn("in-flight sends abandoned", zap.Error(err))
		}

		return nil
	},
}

func buildProviders(cfgs []config.ProviderConfig) ([]dispatcher.Provider, error) {
	var provs []dispatcher.Provider
	for _, pc := range cfgs {
		if !pc.Enabled {
			continue
		}
		switch pc.Kind {
		case config.ProviderTwilio:
			provs = append(provs, dispatcher.NewTwilioProvider(
				pc.Name,
				pc.AccountSID,
				pc.AuthToken,
				pc.Breaker.FailThreshold,
				pc.Breaker.OpenForMs,
			))
		case config.ProviderHTTP:
			if strings.TrimSpace(pc.BaseURL) == "" {
				continue
			}
			provs = append(provs, dispatcher.NewHTTPProvider(
				pc.Name,
				strings.TrimRight(pc.BaseURL, "/"),
				pc.Path,
				pc.TimeoutMs,
				pc.Breaker.FailThreshold,
				pc.Breaker.OpenForMs,
			))
		default:
			return nil, fmt.Errorf("provider %q: unknown kind %q", pc.Name, pc.Kind)
		}
	}
	if len(provs) == 0 {
		return nil, fmt.Errorf("no providers enabled in config")
	}
	return provs, nil
}
