package webhook_test

import (
	"testing"

	"github.com/jmehdipour/order-sms/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNotification(t *testing.T) {
	testCases := []struct {
		Name     string
		Body     string
		Expected string
	}{
		{
			Name:     "full_order",
			Body:     `{"payload":{"id":"ORD-1","order":{"total_with_tax":{"formatted_with_symbol":"$42.00"}}}}`,
			Expected: "New order: ORD-1 for $42.00",
		},
		{
			Name:     "no_order",
			Body:     `{"payload":{"id":"ORD-7"}}`,
			Expected: "New order: ORD-7 for $0.00",
		},
		{
			Name:     "no_id",
			Body:     `{"payload":{"order":{"total_with_tax":{"formatted_with_symbol":"€10,00"}}}}`,
			Expected: "New order: Test request for €10,00",
		},
		{
			Name:     "test_delivery",
			Body:     `{"event":"test.webhook","payload":{}}`,
			Expected: "New order: Test request for $0.00",
		},
		{
			Name:     "no_payload",
			Body:     `{"event":"test.webhook"}`,
			Expected: "New order: Test request for $0.00",
		},
		{
			Name:     "numeric_id",
			Body:     `{"payload":{"id":1234}}`,
			Expected: "New order: 1234 for $0.00",
		},
		{
			Name:     "numeric_zero_id",
			Body:     `{"payload":{"id":0}}`,
			Expected: "New order: Test request for $0.00",
		},
		{
			Name:     "string_zero_id",
			Body:     `{"payload":{"id":"0"}}`,
			Expected: "New order: 0 for $0.00",
		},
		{
			Name:     "false_id",
			Body:     `{"payload":{"id":false}}`,
			Expected: "New order: Test request for $0.00",
		},
		{
			Name:     "fractional_id",
			Body:     `{"payload":{"id":12.50}}`,
			Expected: "New order: 12.5 for $0.00",
		},
		{
			Name:     "null_order",
			Body:     `{"payload":{"id":"ORD-1","order":null}}`,
			Expected: "New order: ORD-1 for $0.00",
		},
		{
			Name:     "order_without_total",
			Body:     `{"payload":{"id":"ORD-1","order":{}}}`,
			Expected: "New order: ORD-1 for $0.00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			w, err := webhook.Parse([]byte(tc.Body))
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, webhook.FormatNotification(w))
		})
	}
}
