package dispatcher

import (
	"context"
	"fmt"

	"github.com/jmehdipour/order-sms/internal/model"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio REST API the provider uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioProvider sends through Twilio's Messages API.
type TwilioProvider struct {
	name string
	api  messageCreator
	br   *Breaker
}

// NewTwilioProvider builds a provider for the given account. Empty credentials
// make the SDK fall back to TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN.
func NewTwilioProvider(name, accountSID, authToken string, failThreshold, openForMs int) *TwilioProvider {
	var client *twilio.RestClient
	if accountSID == "" && authToken == "" {
		client = twilio.NewRestClient()
	} else {
		client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
	}

	return newTwilioProvider(name, client.Api, failThreshold, openForMs)
}

func newTwilioProvider(name string, api messageCreator, failThreshold, openForMs int) *TwilioProvider {
	return &TwilioProvider{
		name: name,
		api:  api,
		br:   NewBreaker(failThreshold, msDuration(openForMs)),
	}
}

func (p *TwilioProvider) Name() string  { return p.name }
func (p *TwilioProvider) Ready() bool   { return p.br.Ready() }
func (p *TwilioProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *TwilioProvider) Send(ctx context.Context, msg model.OutboundMessage) (string, error) {
	// the SDK call takes no context
	if err := ctx.Err(); err != nil {
		p.br.Record(Abandoned)
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(msg.From)
	params.SetBody(msg.Body)

	resp, err := p.api.CreateMessage(params)
	p.br.Record(Classify(ctx, err))
	if err != nil {
		return "", fmt.Errorf("provider=%s: %w", p.name, err)
	}

	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
