package messaging

import (
	"strings"
	"testing"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	out := TemplateOTPVerification.Render(map[string]string{"1": "482913"})
	if !strings.Contains(out, "482913") {
		t.Fatalf("expected rendered code, got %q", out)
	}
	if strings.Contains(out, "{{1}}") {
		t.Fatalf("placeholder survived rendering: %q", out)
	}

	out = TemplateVisitConfirmation.Render(map[string]string{"1": "3", "2": "10"})
	if !strings.Contains(out, "3/10") {
		t.Fatalf("expected 3/10 in %q", out)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	// Missing variables are left as-is, not an error.
	out := TemplateVisitConfirmation.Render(map[string]string{"1": "3"})
	if !strings.Contains(out, "{{2}}") {
		t.Fatalf("expected untouched placeholder in %q", out)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if out := Template("nonsense").Render(nil); out != "" {
		t.Fatalf("expected empty body for unknown template, got %q", out)
	}
}

func TestTemplateCosts(t *testing.T) {
	cases := map[Template]int{
		TemplateOTPVerification:   4,
		TemplateWelcome:           4,
		TemplateVisitConfirmation: 0,
		TemplateRewardEarned:      4,
		TemplateRewardRedeemed:    0,
		TemplateMarketing:         7,
	}
	for tmpl, want := range cases {
		if got := tmpl.CostCents(); got != want {
			t.Errorf("%s cost = %d, want %d", tmpl, got, want)
		}
	}
	if SMSCostCents != 5 {
		t.Errorf("sms cost = %d, want 5", SMSCostCents)
	}
}

func TestSessionTemplates(t *testing.T) {
	for tmpl, wantSession := range map[Template]bool{
		TemplateVisitConfirmation: true,
		TemplateRewardRedeemed:    true,
		TemplateOTPVerification:   false,
		TemplateWelcome:           false,
		TemplateRewardEarned:      false,
		TemplateMarketing:         false,
	} {
		if tmpl.Session() != wantSession {
			t.Errorf("%s session = %v, want %v", tmpl, tmpl.Session(), wantSession)
		}
	}
}

func TestParseTemplate(t *testing.T) {
	if _, ok := ParseTemplate("otp_verification"); !ok {
		t.Fatal("expected otp_verification to parse")
	}
	if _, ok := ParseTemplate("bogus"); ok {
		t.Fatal("expected bogus to be unknown")
	}
}
