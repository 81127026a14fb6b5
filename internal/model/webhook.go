package model

// Webhook is the view of one inbound commerce notification.
// Raw keeps the body exactly as received; the remaining fields are extracted from it.
type Webhook struct {
	Raw []byte

	Signature    string
	Created      int64
	HasCreated   bool
	Event        string
	ResponseCode string // integer or string in the payload, kept as text

	OrderID    string // payload.id
	HasOrder   bool   // payload.order present and not null
	OrderTotal string // payload.order.total_with_tax.formatted_with_symbol
}
