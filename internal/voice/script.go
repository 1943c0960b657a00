package voice

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/models"
)

const scriptSystemInstruction = `You are a professional investment advisory
voice assistant. Write the exact script a voice agent will read on a phone
call. Professional, informative, trustworthy tone, 250-300 words. The
script must: greet the client, summarize the market/news context, state the
available investment amount, present the single recommended stock with its
rationale, ask the client to clearly answer "yes" to proceed, "no" to
decline, or to name a different dollar amount, and close politely.`

// BuildCallScript renders the text the voice agent reads. Gemini polishes
// the script when available; otherwise the deterministic template is used
// as is. Script generation never fails: the template is always a valid
// outcome.
func BuildCallScript(ctx context.Context, g *GeminiClient, s *models.Suggestion, unusedCash decimal.Decimal) string {
	base := templateScript(s, unusedCash)
	if g == nil {
		return base
	}

	prompt := fmt.Sprintf(
		"Rewrite the following call script following the system instructions. Keep every figure unchanged.\n\n%s", base)
	polished, err := g.Generate(ctx, scriptSystemInstruction, prompt, false)
	if err != nil {
		log.Printf("Voice: script generation failed, using template: %v", err)
		return base
	}
	polished = strings.TrimSpace(polished)
	if polished == "" {
		return base
	}
	return polished
}

// templateScript is the fallback script. It carries everything the
// transcript parser later relies on: amount, ticker, and the three
// accepted answers.
func templateScript(s *models.Suggestion, unusedCash decimal.Decimal) string {
	var sb strings.Builder
	sb.WriteString("Hello, this is your investment assistant calling with a suggestion based on your account activity. ")
	fmt.Fprintf(&sb, "You currently have about $%s of unused cash beyond your usual spending. ", unusedCash.StringFixed(0))
	fmt.Fprintf(&sb, "Based on current market signals, I suggest investing $%s in %s (%s). ",
		s.Amount.StringFixed(0), s.CompanyName, s.Ticker)
	fmt.Fprintf(&sb, "Supporting context: %s. ", s.Rationale)
	sb.WriteString("Would you like to proceed? Please answer yes to confirm this investment, ")
	sb.WriteString("no to decline, or tell me a different dollar amount you would prefer to invest. ")
	sb.WriteString("Nothing will be purchased without your clear confirmation. Thank you.")
	return sb.String()
}
