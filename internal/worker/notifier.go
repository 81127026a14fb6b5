package worker

import (
	"context"
	"sync"

	"github.com/jmehdipour/order-sms/internal/metrics"
	"github.com/jmehdipour/order-sms/internal/model"
	"go.uber.org/zap"
)

// Sender delivers one message; *dispatcher.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, msg model.OutboundMessage) (model.Delivery, error)
}

// Notifier runs sends detached from the request that produced them.
// Outcomes only reach logs and metrics.
type Notifier struct {
	sender Sender
	log    *zap.Logger

	// base outlives individual requests; cancelled only by Close
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotifier(sender Sender, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		sender: sender,
		log:    log.Named("notifier"),
		base:   ctx,
		cancel: cancel,
	}
}

// Dispatch starts the send and returns immediately.
func (n *Notifier) Dispatch(msg model.OutboundMessage) {
	metrics.MessagesTotal.WithLabelValues("dispatched").Inc()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.sendOne(msg)
	}()
}

func (n *Notifier) sendOne(msg model.OutboundMessage) {
	log := n.log.With(zap.String("message_id", msg.ID), zap.String("to", msg.To))

	d, err := n.sender.Send(n.base, msg)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("failed").Inc()
		log.Error("send failed", zap.String("provider", d.Provider), zap.Error(err))
		return
	}

	metrics.MessagesTotal.WithLabelValues("sent").Inc()
	log.Info("sent message", zap.String("provider", d.Provider), zap.String("sid", d.MessageID))
}

// Wait blocks until in-flight sends finish or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels sends that are still running.
func (n *Notifier) Close() {
	n.cancel()
}
