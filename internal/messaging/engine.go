package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/benjp009/loyeo/internal/ledger"
	"github.com/benjp009/loyeo/internal/observability"
	"github.com/benjp009/loyeo/internal/phone"
)

// Carrier error codes meaning "recipient unreachable on WhatsApp". Only these
// trigger the OTP SMS fallback; anything else (bad credentials, malformed
// request) propagates so a fallback attempt cannot mask the root cause.
var whatsAppFallbackCodes = map[int]bool{
	63001: true, // user is not on WhatsApp
	63003: true, // message failed to send
	63016: true, // message undeliverable
	63024: true, // recipient number not valid on channel
}

// ErrCodeNetwork marks transport-level failures where delivery could not be
// confirmed at all. Fallback-eligible for OTP sends only.
const ErrCodeNetwork = "NETWORK_ERROR"

type Ledger interface {
	InsertEvent(ctx context.Context, ev ledger.Event) error
}

// Engine orchestrates channel selection and fallback on top of a Provider.
// Safe for concurrent use; the provider is stateless after construction.
type Engine struct {
	Provider    Provider
	Ledger      Ledger
	ContentSIDs map[Template]string
	HashSecret  string
}

const ledgerTimeout = 3 * time.Second

// SendOTP delivers a verification code, WhatsApp first with SMS fallback.
func (e *Engine) SendOTP(ctx context.Context, req OTPRequest) SendResult {
	num, err := phone.Parse(req.Phone)
	if err != nil {
		res := failure(ChannelWhatsApp, "INVALID_PHONE", "invalid French phone number: "+req.Phone)
		e.record(ctx, res, "otp", phone.HashString(phone.Normalize(req.Phone), e.HashSecret))
		return res
	}

	preferWhatsApp := req.PreferWhatsApp == nil || *req.PreferWhatsApp

	var res SendResult
	if preferWhatsApp {
		res = e.sendWhatsAppOTP(ctx, num, req.Code)
		if !res.Success && e.shouldFallBack(res.Error) {
			slog.Info("whatsapp otp failed, falling back to sms",
				"error_code", res.Error.Code,
				"phone_hash", num.Hash(e.HashSecret),
			)
			observability.Fallbacks.Inc()
			res = e.sendSMSOTP(ctx, num, req.Code)
		}
	} else {
		res = e.sendSMSOTP(ctx, num, req.Code)
	}

	e.record(ctx, res, "otp", num.Hash(e.HashSecret))
	return res
}

func (e *Engine) sendWhatsAppOTP(ctx context.Context, to phone.Number, code string) SendResult {
	vars := map[string]string{"1": code}
	msg := WhatsAppMessage{To: to}
	if sid := e.ContentSIDs[TemplateOTPVerification]; sid != "" {
		msg.ContentSID = sid
		msg.Variables = vars
	} else {
		// No approved template configured: an optional template must not
		// block a security-critical OTP, so send the body verbatim.
		msg.Body = TemplateOTPVerification.Render(vars)
	}

	pm, err := e.Provider.SendWhatsApp(ctx, msg)
	if err != nil {
		return e.carrierFailure(ChannelWhatsApp, err)
	}
	return e.success(ChannelWhatsApp, pm, TemplateOTPVerification.CostCents())
}

func (e *Engine) sendSMSOTP(ctx context.Context, to phone.Number, code string) SendResult {
	pm, err := e.Provider.SendSMS(ctx, SMSMessage{
		To:   to,
		Body: TemplateOTPVerification.Render(map[string]string{"1": code}),
	})
	if err != nil {
		return e.carrierFailure(ChannelSMS, err)
	}
	return e.success(ChannelSMS, pm, SMSCostCents)
}

// SendWhatsAppTemplate sends a pre-approved template, or a locally rendered
// free-form body for session messages. The caller guarantees the recipient is
// inside the provider's session window; this engine cannot check that.
// No channel fallback here: fallback is an OTP-specific policy.
func (e *Engine) SendWhatsAppTemplate(ctx context.Context, req TemplateRequest) SendResult {
	num, err := phone.Parse(req.Phone)
	if err != nil {
		res := failure(ChannelWhatsApp, "INVALID_PHONE", "invalid French phone number: "+req.Phone)
		e.record(ctx, res, "template", phone.HashString(phone.Normalize(req.Phone), e.HashSecret))
		return res
	}

	tmpl, known := ParseTemplate(req.Template)

	var res SendResult
	switch {
	case req.IsSessionMessage:
		if !known || !tmpl.Session() {
			res = failure(ChannelWhatsApp, "TEMPLATE_NOT_CONFIGURED",
				"not a session template: "+req.Template)
			break
		}
		res = e.sendWhatsAppDirect(ctx, num, tmpl.Render(req.Variables))

	default:
		sid := ""
		if known {
			sid = e.ContentSIDs[tmpl]
		}
		if sid == "" {
			res = failure(ChannelWhatsApp, "TEMPLATE_NOT_CONFIGURED",
				"WhatsApp template not configured: "+req.Template)
			break
		}
		pm, err := e.Provider.SendWhatsApp(ctx, WhatsAppMessage{
			To:         num,
			ContentSID: sid,
			Variables:  req.Variables,
		})
		if err != nil {
			res = e.carrierFailure(ChannelWhatsApp, err)
			break
		}
		res = e.success(ChannelWhatsApp, pm, tmpl.CostCents())
	}

	e.record(ctx, res, "template", num.Hash(e.HashSecret))
	return res
}

// sendWhatsAppDirect sends a free-form body. Session messages are free.
func (e *Engine) sendWhatsAppDirect(ctx context.Context, to phone.Number, body string) SendResult {
	pm, err := e.Provider.SendWhatsApp(ctx, WhatsAppMessage{To: to, Body: body})
	if err != nil {
		return e.carrierFailure(ChannelWhatsApp, err)
	}
	return e.success(ChannelWhatsApp, pm, 0)
}

// SendSMS sends a verbatim text body over SMS.
func (e *Engine) SendSMS(ctx context.Context, req SMSRequest) SendResult {
	num, err := phone.Parse(req.Phone)
	if err != nil {
		res := failure(ChannelSMS, "INVALID_PHONE", "invalid French phone number: "+req.Phone)
		e.record(ctx, res, "sms", phone.HashString(phone.Normalize(req.Phone), e.HashSecret))
		return res
	}

	var res SendResult
	pm, err := e.Provider.SendSMS(ctx, SMSMessage{To: num, Body: req.Message})
	if err != nil {
		res = e.carrierFailure(ChannelSMS, err)
	} else {
		res = e.success(ChannelSMS, pm, SMSCostCents)
	}

	e.record(ctx, res, "sms", num.Hash(e.HashSecret))
	return res
}

func (e *Engine) success(ch Channel, pm ProviderMessage, costCents int) SendResult {
	observability.Sends.WithLabelValues(string(ch), "ok").Inc()
	observability.SendCost.WithLabelValues(string(ch)).Add(float64(costCents))
	return SendResult{
		Success:            true,
		MessageID:          pm.ID,
		Channel:            ch,
		Status:             pm.Status,
		EstimatedCostCents: costCents,
	}
}

func (e *Engine) carrierFailure(ch Channel, err error) SendResult {
	observability.Sends.WithLabelValues(string(ch), "error").Inc()

	var ce *CarrierError
	if errors.As(err, &ce) {
		slog.Error("carrier send failed", "provider", e.Provider.Name(),
			"channel", string(ch), "carrier_code", ce.Code, "err", ce.Message)
		return failure(ch, strconv.Itoa(ce.Code), ce.Message)
	}

	slog.Error("carrier call failed", "provider", e.Provider.Name(),
		"channel", string(ch), "err", err)
	return failure(ch, ErrCodeNetwork, err.Error())
}

func (e *Engine) shouldFallBack(se *SendError) bool {
	if se == nil {
		return false
	}
	if se.Code == ErrCodeNetwork {
		// Delivery genuinely could not be confirmed; try the other channel.
		return true
	}
	code, err := strconv.Atoi(se.Code)
	if err != nil {
		return false
	}
	return whatsAppFallbackCodes[code]
}

// record appends the attempt to the delivery ledger. A ledger failure never
// surfaces to the caller: the message was sent (or not) regardless of whether
// the audit row persisted.
func (e *Engine) record(ctx context.Context, res SendResult, msgType, phoneHash string) {
	if e.Ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, ledgerTimeout)
	defer cancel()

	ev := ledger.Event{
		MessageID:   res.MessageID,
		MessageType: msgType,
		Channel:     string(res.Channel),
		Status:      string(res.Status),
		PhoneHash:   phoneHash,
		CostCents:   res.EstimatedCostCents,
		CreatedAt:   time.Now().UTC(),
	}
	if res.Error != nil {
		ev.ErrorCode = res.Error.Code
		ev.ErrorMessage = res.Error.Message
	}
	if err := e.Ledger.InsertEvent(ctx, ev); err != nil {
		slog.Warn("ledger insert failed", "err", err,
			"message_id", res.MessageID, "message_type", msgType)
	}
}
