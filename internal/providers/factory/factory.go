package factory

import (
	"fmt"

	"github.com/benjp009/loyeo/internal/config"
	"github.com/benjp009/loyeo/internal/messaging"
	"github.com/benjp009/loyeo/internal/providers/twilio"
)

// New resolves the active provider from configuration. Called once from the
// composition root; the result is injected everywhere a provider is needed.
// Unknown selectors fail here, at startup, not at first use.
func New(cfg config.Messaging) (messaging.Provider, error) {
	switch cfg.Provider {
	case "twilio":
		p, err := twilio.New(twilio.Config{
			AccountSID:        cfg.TwilioAccountSID,
			AuthToken:         cfg.TwilioAuthToken,
			PhoneNumber:       cfg.TwilioPhoneNumber,
			WhatsAppNumber:    cfg.TwilioWhatsAppNumber,
			BaseURL:           cfg.TwilioBaseURL,
			StatusCallbackURL: cfg.StatusCallbackURL,
			Timeout:           cfg.TwilioSendTimeout,
			RPS:               cfg.TwilioRPSPerPod,
			Burst:             cfg.TwilioBurst,
		})
		if err != nil {
			return nil, fmt.Errorf("factory: twilio provider init: %w", err)
		}
		return p, nil
	case "mock":
		return messaging.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown messaging provider %q (supported: twilio, mock)", cfg.Provider)
	}
}

// ContentSIDs maps the configured carrier content identifiers onto templates.
func ContentSIDs(cfg config.Messaging) map[messaging.Template]string {
	sids := map[messaging.Template]string{
		messaging.TemplateOTPVerification:   cfg.TemplateOTP,
		messaging.TemplateWelcome:           cfg.TemplateWelcome,
		messaging.TemplateVisitConfirmation: cfg.TemplateVisit,
		messaging.TemplateRewardEarned:      cfg.TemplateRewardEarned,
		messaging.TemplateRewardRedeemed:    cfg.TemplateRewardRedeemed,
		messaging.TemplateMarketing:         cfg.TemplateMarketing,
	}
	for t, sid := range sids {
		if sid == "" {
			delete(sids, t)
		}
	}
	return sids
}
