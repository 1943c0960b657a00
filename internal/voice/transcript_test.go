package voice

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/models"
)

// All fallback-parser tests run with a nil Gemini client.

func parse(t *testing.T, transcript string) Decision {
	t.Helper()
	return ParseTranscript(context.Background(), nil, transcript)
}

func TestParseTranscript_Accept(t *testing.T) {
	cases := []string{
		"user: Yes, go ahead.",
		"user: yeah sounds good",
		"user: Confirm the purchase please",
		"user: invest",
	}
	for _, tc := range cases {
		if d := parse(t, tc); d.Kind != models.DecisionAccept {
			t.Errorf("%q: expected accept, got %s", tc, d.Kind)
		}
	}
}

func TestParseTranscript_Decline(t *testing.T) {
	cases := []string{
		"user: No thank you.",
		"user: I don't want to do this right now",
		"user: maybe later",
		"user: stop calling me",
	}
	for _, tc := range cases {
		if d := parse(t, tc); d.Kind != models.DecisionDecline {
			t.Errorf("%q: expected decline, got %s", tc, d.Kind)
		}
	}
}

func TestParseTranscript_AmbiguousDefaultsToDecline(t *testing.T) {
	cases := []string{
		"user: buy a little",
		"user: hmm, interesting",
		"user: what do you think about bonds?",
		"",
	}
	for _, tc := range cases {
		if d := parse(t, tc); d.Kind != models.DecisionDecline {
			t.Errorf("%q: expected fail-safe decline, got %s", tc, d.Kind)
		}
	}
}

func TestParseTranscript_Modify(t *testing.T) {
	d := parse(t, "user: Yes, but only 500 dollars please")
	if d.Kind != models.DecisionModify {
		t.Fatalf("Expected modify, got %s", d.Kind)
	}
	if !d.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected amount 500, got %s", d.Amount)
	}

	d = parse(t, "user: go ahead with $1,250 instead")
	if d.Kind != models.DecisionModify {
		t.Fatalf("Expected modify, got %s", d.Kind)
	}
	if !d.Amount.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("Expected amount 1250, got %s", d.Amount)
	}
}

func TestParseTranscript_IgnoresAgentLines(t *testing.T) {
	// The agent's script says "yes" and names a dollar figure; only the
	// user's turn may decide.
	transcript := "assistant: Please answer yes to confirm investing $800 in AAPL, or no to decline.\n" +
		"user: no"
	if d := parse(t, transcript); d.Kind != models.DecisionDecline {
		t.Errorf("Expected decline from user line, got %s", d.Kind)
	}

	transcript = "assistant: Please answer yes to confirm investing $800 in AAPL, or no to decline.\n" +
		"user: ok yes"
	if d := parse(t, transcript); d.Kind != models.DecisionAccept {
		t.Errorf("Expected accept from user line, got %s", d.Kind)
	}
}

func TestParseTranscript_NoFalsePositivesOnSubwords(t *testing.T) {
	// "now" and "know" must not fire the "no" rule; with nothing explicit
	// the result is still the fail-safe decline, but via ambiguity.
	d := parse(t, "user: right now I know nothing")
	if d.Kind != models.DecisionDecline {
		t.Errorf("Expected decline, got %s", d.Kind)
	}
}

func TestParseLLMDecision(t *testing.T) {
	d, ok := parseLLMDecision(`{"decision":"accept","amount":null}`)
	if !ok || d.Kind != models.DecisionAccept {
		t.Errorf("accept JSON not parsed: ok=%v kind=%s", ok, d.Kind)
	}

	d, ok = parseLLMDecision("```json\n{\"decision\":\"modify\",\"amount\":750}\n```")
	if !ok || d.Kind != models.DecisionModify || !d.Amount.Equal(decimal.NewFromInt(750)) {
		t.Errorf("modify JSON not parsed: ok=%v kind=%s amount=%s", ok, d.Kind, d.Amount)
	}

	// Modify without amount is ambiguous: decline.
	d, ok = parseLLMDecision(`{"decision":"modify","amount":null}`)
	if !ok || d.Kind != models.DecisionDecline {
		t.Errorf("amountless modify should decline: ok=%v kind=%s", ok, d.Kind)
	}

	if _, ok := parseLLMDecision("not json at all"); ok {
		t.Error("Garbage should not parse")
	}
}
