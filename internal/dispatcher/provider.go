package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmehdipour/order-sms/internal/model"
)

type Provider interface {
	Name() string
	Ready() bool
	Acquire() bool
	// Send delivers msg and returns the provider's message id (may be empty).
	Send(ctx context.Context, msg model.OutboundMessage) (string, error)
}

// HTTPProvider posts {"to","from","body"} as JSON to a generic SMS gateway.
type HTTPProvider struct {
	name   string
	url    string
	client *http.Client
	br     *Breaker
}

func NewHTTPProvider(name, baseURL, path string, timeoutMs, failThreshold, openForMs int) *HTTPProvider {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	return &HTTPProvider{
		name:   name,
		url:    baseURL + path,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:     NewBreaker(failThreshold, msDuration(openForMs)),
	}
}

func (p *HTTPProvider) Name() string  { return p.name }
func (p *HTTPProvider) Ready() bool   { return p.br.Ready() }
func (p *HTTPProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *HTTPProvider) Send(ctx context.Context, msg model.OutboundMessage) (string, error) {
	id, err := p.post(ctx, msg)
	p.br.Record(Classify(ctx, err))
	if err != nil {
		return "", err
	}

	return id, nil
}

// StatusError is a non-2xx reply from an HTTP gateway.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider=%s status=%d", e.Provider, e.Code)
}

type httpProviderReply struct {
	ID  string `json:"id"`
	SID string `json:"sid"`
}

func (p *HTTPProvider) post(ctx context.Context, msg model.OutboundMessage) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return "", &StatusError{Provider: p.name, Code: res.StatusCode}
	}

	// the id is optional; a non-JSON 2xx reply still counts as sent
	var reply httpProviderReply
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", nil
	}
	if reply.ID != "" {
		return reply.ID, nil
	}

	return reply.SID, nil
}
