package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient is a minimal wrapper over the generateContent REST
// endpoint, used for call-script generation and transcript parsing.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *resty.Client
}

// NewGeminiClient returns a client, or nil when no key is configured.
// Callers treat a nil client as "LLM features disabled" and fall back to
// deterministic templates.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if apiKey == "" {
		return nil
	}
	http := resty.New()
	http.SetTimeout(60 * time.Second)
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		http:    http,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  map[string]any  `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate runs one prompt and returns the raw model text. When jsonMode
// is set the model is constrained to emit a JSON document.
func (g *GeminiClient) Generate(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if jsonMode {
		req.GenerationConfig = map[string]any{"response_mime_type": "application/json"}
	}

	var out geminiResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", g.apiKey).
		SetBody(req).
		SetResult(&out).
		Post(fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini API error %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
