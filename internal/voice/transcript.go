package voice

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/models"
)

// Decision is the parsed outcome of a completed call.
type Decision struct {
	Kind   string // models.DecisionAccept / DecisionDecline / DecisionModify
	Amount decimal.Decimal
}

const transcriptSystemInstruction = `You analyze a phone call transcript in
which a user was asked to confirm a stock purchase. Decide whether the user
clearly accepted, clearly declined, or asked for a different dollar amount.
Anything ambiguous, hedged, or unclear counts as a decline: never assume
consent. Respond ONLY with JSON of the form
{"decision":"accept"|"decline"|"modify","amount":number|null}.`

// llmDecision is the JSON shape the model is constrained to.
type llmDecision struct {
	Decision string   `json:"decision"`
	Amount   *float64 `json:"amount"`
}

// ParseTranscript turns a transcript into a Decision. Gemini is consulted
// when available; on any failure or on unparseable output the keyword
// fallback takes over. The fail-safe default is always Decline.
func ParseTranscript(ctx context.Context, g *GeminiClient, transcript string) Decision {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Decision{Kind: models.DecisionDecline}
	}

	if g != nil {
		raw, err := g.Generate(ctx, transcriptSystemInstruction, transcript, true)
		if err == nil {
			if d, ok := parseLLMDecision(raw); ok {
				return d
			}
			log.Printf("Voice: unparseable model decision %q, using keyword fallback", raw)
		} else {
			log.Printf("Voice: transcript analysis failed, using keyword fallback: %v", err)
		}
	}

	return keywordDecision(transcript)
}

func parseLLMDecision(raw string) (Decision, bool) {
	raw = strings.TrimSpace(raw)
	// Models occasionally wrap JSON in a code fence despite JSON mode.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var d llmDecision
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &d); err != nil {
		return Decision{}, false
	}
	switch d.Decision {
	case models.DecisionAccept:
		return Decision{Kind: models.DecisionAccept}, true
	case models.DecisionModify:
		if d.Amount == nil || *d.Amount <= 0 {
			// A modify without an amount is ambiguous: decline.
			return Decision{Kind: models.DecisionDecline}, true
		}
		return Decision{Kind: models.DecisionModify, Amount: decimal.NewFromFloat(*d.Amount)}, true
	case models.DecisionDecline:
		return Decision{Kind: models.DecisionDecline}, true
	default:
		return Decision{}, false
	}
}

// Explicit confirmations only. Anything softer ("buy a little", "maybe")
// must fall through to Decline.
var acceptPhrases = []string{
	"yes", "yeah", "yep", "confirm", "go ahead", "sounds good", "do it",
	"invest", "proceed", "let's do",
}

var declinePhrases = []string{
	"no", "not now", "don't", "do not", "decline", "skip", "pass",
	"maybe later", "not interested", "stop calling",
}

var amountRe = regexp.MustCompile(`\$?\s*(\d[\d,]*(?:\.\d{1,2})?)\s*(?:dollars|bucks)?`)

// keywordDecision is the deterministic fallback parser. It only looks at
// the user's side of the transcript: the agent's own script contains the
// words "yes", "no", and a dollar figure, which must never count as the
// user's answer.
func keywordDecision(transcript string) Decision {
	text := strings.ToLower(userLines(transcript))

	declined := containsAny(text, declinePhrases)
	accepted := containsAny(text, acceptPhrases)

	// A stated dollar amount together with a confirmation is a Modify.
	if amt, ok := extractAmount(text); ok && accepted && !declined {
		return Decision{Kind: models.DecisionModify, Amount: amt}
	}

	switch {
	case declined:
		return Decision{Kind: models.DecisionDecline}
	case accepted:
		return Decision{Kind: models.DecisionAccept}
	default:
		// Ambiguous: never assume consent.
		return Decision{Kind: models.DecisionDecline}
	}
}

// userLines extracts "user:" speaker turns from a concatenated
// transcript. Transcripts without speaker labels are returned whole.
func userLines(transcript string) string {
	var user []string
	labeled := false
	for _, line := range strings.Split(transcript, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "user:"):
			labeled = true
			user = append(user, strings.TrimSpace(trimmed[len("user:"):]))
		case strings.HasPrefix(lower, "assistant:") || strings.HasPrefix(lower, "agent:"):
			labeled = true
		}
	}
	if !labeled {
		return transcript
	}
	return strings.Join(user, "\n")
}

var wordRe = regexp.MustCompile(`[a-z]+`)

// containsAny matches single-word phrases on word boundaries and longer
// phrases as substrings, so "no" never fires on "now" or "know".
func containsAny(text string, phrases []string) bool {
	words := make(map[string]bool)
	for _, w := range wordRe.FindAllString(text, -1) {
		words[w] = true
	}
	for _, p := range phrases {
		if strings.ContainsAny(p, " '") {
			if strings.Contains(text, p) {
				return true
			}
		} else if words[p] {
			return true
		}
	}
	return false
}

func extractAmount(text string) (decimal.Decimal, bool) {
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	amt, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || amt.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}
	return amt, true
}
