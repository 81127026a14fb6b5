package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersms_webhooks_total",
			Help: "Inbound webhooks by outcome",
		},
		[]string{"outcome"}, // accepted|malformed|bad_signature|stale
	)

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersms_messages_total",
			Help: "Outbound SMS lifecycle counter by stage",
		},
		[]string{"stage"}, // dispatched|sent|failed
	)
)

// MustRegister registers the collectors; registering twice on the same registerer is a no-op.
func MustRegister(r prometheus.Registerer) {
	for _, c := range []prometheus.Collector{WebhooksTotal, MessagesTotal} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}
