package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jmehdipour/order-sms/internal/metrics"
	"github.com/jmehdipour/order-sms/internal/model"
	"github.com/jmehdipour/order-sms/internal/util"
	"github.com/jmehdipour/order-sms/internal/webhook"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Notifier hands an outbound message off without waiting for delivery.
type Notifier interface {
	Dispatch(msg model.OutboundMessage)
}

type webhookDeps struct {
	verifier  *webhook.Verifier
	freshness *webhook.Freshness
	enforce   bool
	to, from  string
	notifier  Notifier
	log       *zap.Logger
}

// webhookHandler: receive -> verify -> format -> dispatch -> 200.
// With enforce off, verification failures are logged and the SMS still goes out.
func webhookHandler(d webhookDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return he
			}
			d.log.Warn("read body", zap.Error(err))
			metrics.WebhooksTotal.WithLabelValues("malformed").Inc()
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		}

		wh, err := webhook.Parse(body)
		if err != nil {
			d.log.Warn("malformed webhook", zap.Error(err), zap.Int("bytes", len(body)))
			metrics.WebhooksTotal.WithLabelValues("malformed").Inc()
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		}

		log := d.log.With(zap.String("event", wh.Event))

		if err := d.verifier.Verify(body); err != nil {
			metrics.WebhooksTotal.WithLabelValues("bad_signature").Inc()
			if d.enforce {
				log.Warn("rejecting webhook", zap.Error(err))
				return c.JSON(http.StatusForbidden, map[string]string{"error": "invalid signature"})
			}
			log.Error("signature mismatch, continuing", zap.Error(err))
		}

		if err := checkFreshness(d.freshness, wh); err != nil {
			metrics.WebhooksTotal.WithLabelValues("stale").Inc()
			if d.enforce {
				log.Warn("rejecting webhook", zap.Error(err), zap.Int64("created", wh.Created))
				return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "stale webhook"})
			}
			log.Error("webhook too old, continuing", zap.Error(err), zap.Int64("created", wh.Created))
		}

		msg := model.OutboundMessage{
			ID:   util.NewID(),
			Body: webhook.FormatNotification(wh),
			To:   d.to,
			From: d.from,
		}
		d.notifier.Dispatch(msg)
		metrics.WebhooksTotal.WithLabelValues("accepted").Inc()

		log.Info(webhook.Describe(wh),
			zap.String("response_code", wh.ResponseCode),
			zap.String("message_id", msg.ID),
		)

		return c.NoContent(http.StatusOK)
	}
}

// checkFreshness treats a missing created timestamp as stale.
func checkFreshness(f *webhook.Freshness, wh *model.Webhook) error {
	if !wh.HasCreated {
		return fmt.Errorf("%w: created missing", webhook.ErrStaleWebhook)
	}
	return f.Check(wh.Created)
}
