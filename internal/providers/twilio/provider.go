package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/benjp009/loyeo/internal/messaging"
	"github.com/benjp009/loyeo/internal/observability"
)

type Config struct {
	AccountSID        string
	AuthToken         string
	PhoneNumber       string
	WhatsAppNumber    string // whatsapp:+33... ; derived from PhoneNumber when empty
	BaseURL           string
	StatusCallbackURL string

	// Carrier call bounds.
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// Provider implements messaging.Provider against the Twilio Messages API.
// Stateless after construction, safe for concurrent use.
type Provider struct {
	client            *Client
	authToken         string
	phoneNumber       string
	whatsAppNumber    string
	statusCallbackURL string

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New fails immediately when credentials or the sender identity are missing;
// that is a startup-class configuration error, never retried.
func New(cfg Config) (*Provider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio not configured: TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	if cfg.PhoneNumber == "" {
		return nil, errors.New("twilio not configured: TWILIO_PHONE_NUMBER is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	wa := cfg.WhatsAppNumber
	if wa == "" {
		wa = "whatsapp:" + cfg.PhoneNumber
	}

	p := &Provider{
		client: &Client{
			AccountSID: cfg.AccountSID,
			AuthToken:  cfg.AuthToken,
			BaseURL:    cfg.BaseURL,
			HTTP:       &http.Client{Timeout: timeout},
		},
		authToken:         cfg.AuthToken,
		phoneNumber:       cfg.PhoneNumber,
		whatsAppNumber:    wa,
		statusCallbackURL: cfg.StatusCallbackURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "twilio",
			Timeout: 30 * time.Second,
		}),
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return p, nil
}

func (p *Provider) Name() string { return "twilio" }

func (p *Provider) SendWhatsApp(ctx context.Context, msg messaging.WhatsAppMessage) (messaging.ProviderMessage, error) {
	params := sendParams{
		From:           p.whatsAppNumber,
		To:             "whatsapp:" + msg.To.E164(),
		StatusCallback: p.statusCallbackURL,
	}
	if msg.ContentSID != "" {
		vars, err := json.Marshal(msg.Variables)
		if err != nil {
			return messaging.ProviderMessage{}, err
		}
		params.ContentSID = msg.ContentSID
		params.ContentVariables = string(vars)
	} else {
		params.Body = msg.Body
	}
	return p.send(ctx, params)
}

func (p *Provider) SendSMS(ctx context.Context, msg messaging.SMSMessage) (messaging.ProviderMessage, error) {
	return p.send(ctx, sendParams{
		From:           p.phoneNumber,
		To:             msg.To.E164(),
		Body:           msg.Body,
		StatusCallback: p.statusCallbackURL,
	})
}

func (p *Provider) ParseDeliveryWebhook(form url.Values) *messaging.DeliveryStatusWebhook {
	return ParseDeliveryWebhook(form)
}

func (p *Provider) VerifyWebhookSignature(signature, fullURL string, form url.Values) bool {
	return VerifySignature(p.authToken, fullURL, signature, form)
}

type callResult struct {
	resp       apiResponse
	httpStatus int
}

// send performs one rate-limited, circuit-broken carrier call. Transport
// failures and carrier 5xx/429 count against the breaker; carrier 4xx
// rejections (recipient-level) pass through as *messaging.CarrierError
// without tripping it.
func (p *Provider) send(ctx context.Context, params sendParams) (messaging.ProviderMessage, error) {
	if p.limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			return messaging.ProviderMessage{}, fmt.Errorf("twilio: rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resAny, err := p.breaker.Execute(func() (any, error) {
		resp, httpStatus, callErr := p.client.createMessage(ctx, params)
		if callErr != nil {
			return nil, callErr
		}
		if httpStatus == http.StatusTooManyRequests || httpStatus >= 500 {
			return nil, fmt.Errorf("twilio: carrier unavailable (http %d): %s", httpStatus, resp.Message)
		}
		return callResult{resp: resp, httpStatus: httpStatus}, nil
	})
	observability.CarrierLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return messaging.ProviderMessage{}, err
	}

	r := resAny.(callResult)
	if r.httpStatus < 200 || r.httpStatus >= 300 {
		return messaging.ProviderMessage{}, &messaging.CarrierError{
			Code:    r.resp.Code,
			Message: r.resp.Message,
		}
	}
	return messaging.ProviderMessage{
		ID:     r.resp.Sid,
		Status: mapStatus(r.resp.Status),
	}, nil
}
