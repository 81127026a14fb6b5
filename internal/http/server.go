package http

import (
	"context"
	"net/http"

	"github.com/jmehdipour/order-sms/internal/config"
	"github.com/jmehdipour/order-sms/internal/http/middleware"
	"github.com/jmehdipour/order-sms/internal/metrics"
	"github.com/jmehdipour/order-sms/internal/webhook"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

// NewServer wires the webhook route plus health and metrics. rds may be nil.
func NewServer(cfg config.Config, notifier Notifier, rds *redis.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mode, _ := webhook.ParseSerialization(cfg.Webhook.Serialization)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.INFO)
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	limit := cfg.HTTP.BodyLimit
	if limit == "" {
		limit = "1M"
	}
	bodyMW := echoMid.BodyLimit(limit)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         cfg.RateLimit.Window,
		RetryAfterHint: true,
	})

	path := cfg.HTTP.WebhookPath
	if path == "" {
		path = "/"
	}

	// routes
	e.Any(path, webhookHandler(webhookDeps{
		verifier:  webhook.NewVerifier(cfg.Webhook.SigningKey, mode),
		freshness: webhook.NewFreshness(cfg.Webhook.MaxAge, nil),
		enforce:   cfg.Webhook.Enforce,
		to:        cfg.SMS.To,
		from:      cfg.SMS.From,
		notifier:  notifier,
		log:       logger.Named("webhook"),
	}), rlMW, bodyMW)

	return &Server{e: e, log: logger}
}

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// ServeHTTP lets tests drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }
