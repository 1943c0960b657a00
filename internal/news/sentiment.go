package news

import "strings"

// Keyword lexicon for the coarse headline-tone score. Deliberately
// simple: headlines are short and the score only nudges the ranking.
var positiveKeywords = []string{
	"growth", "profit", "gain", "rise", "increase", "bullish", "optimistic",
	"strong", "beat", "exceed", "outperform", "upgrade", "buy", "positive",
	"rally", "surge", "boom", "recovery", "expansion",
}

var negativeKeywords = []string{
	"loss", "decline", "fall", "drop", "bearish", "pessimistic", "weak",
	"miss", "underperform", "downgrade", "sell", "negative", "crash",
	"plunge", "recession", "crisis", "concern", "risk", "volatility",
}

// scoreText rates a single headline/snippet in [-1, 1].
func scoreText(text string) float64 {
	text = strings.ToLower(text)

	var pos, neg int
	for _, kw := range positiveKeywords {
		if strings.Contains(text, kw) {
			pos++
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(text, kw) {
			neg++
		}
	}

	switch {
	case pos > neg:
		return float64(min(pos-neg, 5)) / 5.0
	case neg > pos:
		return -float64(min(neg-pos, 5)) / 5.0
	default:
		return 0
	}
}

// scoreItems averages per-item scores into the overall sentiment score.
func scoreItems(items []searchItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += scoreText(it.Title + " " + it.Snippet)
	}
	return sum / float64(len(items))
}
