package model

// OutboundMessage is the SMS built for one accepted webhook.
type OutboundMessage struct {
	ID   string `json:"-"` // ULID, log correlation only
	Body string `json:"body"`
	To   string `json:"to"`
	From string `json:"from"`
}

// Delivery is what a provider reports back for a sent message.
type Delivery struct {
	Provider  string
	MessageID string
}
