package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jmehdipour/order-sms/internal/model"
)

var (
	ErrNoHealthy = errors.New("no healthy providers")
	ErrNoAcquire = errors.New("provider not acquired")
)

// Dispatcher picks a ready provider round-robin and makes a single attempt.
type Dispatcher struct {
	providers         []Provider
	roundRobinCounter atomic.Uint64
}

func NewDispatcher(provs []Provider) *Dispatcher {
	return &Dispatcher{providers: provs}
}

func (d *Dispatcher) selectProvider() (Provider, error) {
	healthy := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		if p.Ready() {
			healthy = append(healthy, p)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

// Send delivers msg through one provider. Failures are not retried.
func (d *Dispatcher) Send(ctx context.Context, msg model.OutboundMessage) (model.Delivery, error) {
	p, err := d.selectProvider()
	if err != nil {
		return model.Delivery{}, err
	}

	if !p.Acquire() {
		return model.Delivery{Provider: p.Name()}, ErrNoAcquire
	}

	id, err := p.Send(ctx, msg)
	if err != nil {
		return model.Delivery{Provider: p.Name()}, err
	}

	return model.Delivery{Provider: p.Name(), MessageID: id}, nil
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
