package webhook

import "time"

const DefaultMaxAge = 300 * time.Second

// Freshness decides whether a webhook's created timestamp is within the
// accepted window. Sender/receiver clock skew is not compensated.
type Freshness struct {
	maxAge time.Duration
	now    func() time.Time
}

func NewFreshness(maxAge time.Duration, now func() time.Time) *Freshness {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now == nil {
		now = time.Now
	}
	return &Freshness{maxAge: maxAge, now: now}
}

func (f *Freshness) MaxAge() time.Duration { return f.maxAge }

// TooOld reports whether now - created > maxAge. A webhook exactly maxAge old
// is still fresh; timestamps in the future are fresh.
func (f *Freshness) TooOld(created int64) bool {
	age := f.now().Sub(time.Unix(created, 0))
	return age > f.maxAge
}

// Check returns ErrStaleWebhook when created is outside the window.
func (f *Freshness) Check(created int64) error {
	if f.TooOld(created) {
		return ErrStaleWebhook
	}
	return nil
}
