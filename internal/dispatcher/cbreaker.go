package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	twilioClient "github.com/twilio/twilio-go/client"
)

type state int

const (
	closed state = iota
	open
	halfOpen
)

func (s state) String() string {
	switch s {
	case open:
		return "open"
	case halfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Outcome is how one send attempt bears on a provider's health.
type Outcome int

const (
	// Answered: the provider accepted the message or refused the request
	// itself (bad number, unverified sender). Either way it is up.
	Answered Outcome = iota
	// Faulted: transport error, timeout, 5xx or throttling.
	Faulted
	// Abandoned: the caller's context ended first; says nothing about the provider.
	Abandoned
)

func (o Outcome) String() string {
	switch o {
	case Faulted:
		return "faulted"
	case Abandoned:
		return "abandoned"
	default:
		return "answered"
	}
}

// Classify maps the result of a send made under ctx to an Outcome.
func Classify(ctx context.Context, err error) Outcome {
	if err == nil {
		return Answered
	}
	if ctx.Err() != nil {
		return Abandoned
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return outcomeForStatus(statusErr.Code)
	}

	var restErr *twilioClient.TwilioRestError
	if errors.As(err, &restErr) {
		return outcomeForStatus(restErr.Status)
	}

	return Faulted
}

func outcomeForStatus(code int) Outcome {
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return Answered
	}
	return Faulted
}

// Breaker guards one provider. It opens after faultLimit consecutive faulted
// sends and, once cooldown has passed, admits a single trial send whose
// outcome closes or reopens it.
type Breaker struct {
	mu         sync.Mutex
	st         state
	faults     int
	faultLimit int
	cooldown   time.Duration
	reopenAt   time.Time
	trialOut   bool
	now        func() time.Time
}

func NewBreaker(faultLimit int, cooldown time.Duration) *Breaker {
	if faultLimit <= 0 {
		faultLimit = 3
	}
	if cooldown <= 0 {
		cooldown = 15 * time.Second
	}
	return &Breaker{faultLimit: faultLimit, cooldown: cooldown, now: time.Now}
}

func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st.String()
}

// Ready reports whether a send could be admitted right now.
func (b *Breaker) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.admits()
}

// TryAcquire admits a send. While not closed only one trial is admitted at
// a time and the breaker moves to half-open.
func (b *Breaker) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.admits() {
		return false
	}
	if b.st != closed {
		b.st = halfOpen
		b.trialOut = true
	}
	return true
}

func (b *Breaker) admits() bool {
	switch b.st {
	case open:
		return !b.trialOut && !b.now().Before(b.reopenAt)
	case halfOpen:
		return !b.trialOut
	default:
		return true
	}
}

// Record feeds back the outcome of an admitted send.
func (b *Breaker) Record(o Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trial := b.st == halfOpen
	b.trialOut = false

	switch o {
	case Answered:
		b.st = closed
		b.faults = 0
	case Faulted:
		b.faults++
		if trial || b.faults >= b.faultLimit {
			b.st = open
			b.reopenAt = b.now().Add(b.cooldown)
		}
	case Abandoned:
		// trial slot freed; state unchanged
	}
}
