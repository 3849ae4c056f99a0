package messaging

import (
	"log/slog"
	"strings"
)

// Template identifies a pre-approved WhatsApp message kind.
type Template string

const (
	TemplateOTPVerification   Template = "otp_verification"
	TemplateWelcome           Template = "welcome"
	TemplateVisitConfirmation Template = "visit_confirmation"
	TemplateRewardEarned      Template = "reward_earned"
	TemplateRewardRedeemed    Template = "reward_redeemed"
	TemplateMarketing         Template = "marketing"
)

// SMSCostCents is the per-message SMS fallback cost in EUR cents.
const SMSCostCents = 5

type templateInfo struct {
	costCents int
	body      string
	// session templates are free and only valid inside the provider's
	// 24h reply window; they never need a carrier content SID.
	session bool
}

var templates = map[Template]templateInfo{
	TemplateOTPVerification:   {costCents: 4, body: "Votre code de vérification Loyeo : {{1}}"},
	TemplateWelcome:           {costCents: 4, body: "Bienvenue chez {{1}} ! Vous avez gagné votre premier tampon."},
	TemplateVisitConfirmation: {costCents: 0, body: "Tampon enregistré ! {{1}}/{{2}} tampons", session: true},
	TemplateRewardEarned:      {costCents: 4, body: "Bravo ! Vous avez gagné : {{1}}"},
	TemplateRewardRedeemed:    {costCents: 0, body: "Récompense utilisée : {{1}}", session: true},
	TemplateMarketing:         {costCents: 7, body: "{{1}}"},
}

// ParseTemplate maps a wire identifier onto a known template.
func ParseTemplate(s string) (Template, bool) {
	t := Template(s)
	_, ok := templates[t]
	return t, ok
}

func (t Template) CostCents() int { return templates[t].costCents }

func (t Template) Session() bool { return templates[t].session }

// Render substitutes {{1}}, {{2}}, ... positional placeholders with the
// supplied variables. Placeholders without a matching variable are left
// as-is. An unknown template logs and returns "" instead of failing: a
// rendering problem must not abort a send pipeline expecting best effort.
func (t Template) Render(vars map[string]string) string {
	info, ok := templates[t]
	if !ok {
		slog.Error("unknown message template", "template", string(t))
		return ""
	}
	out := info.body
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
