package webhook

import (
	"fmt"

	"github.com/jmehdipour/order-sms/internal/model"
)

const (
	PlaceholderOrderID    = "Test request"
	PlaceholderOrderValue = "$0.00"
)

// FormatNotification builds "New order: <id> for <value>".
// Platform test deliveries carry no order id and no order, hence the placeholders.
func FormatNotification(w *model.Webhook) string {
	id := w.OrderID
	if id == "" {
		id = PlaceholderOrderID
	}

	value := PlaceholderOrderValue
	if w.HasOrder && w.OrderTotal != "" {
		value = w.OrderTotal
	}

	return fmt.Sprintf("New order: %s for %s", id, value)
}
