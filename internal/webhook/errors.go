package webhook

import "errors"

var (
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrSignatureMissing  = errors.New("signature missing")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrStaleWebhook      = errors.New("stale webhook")
)
