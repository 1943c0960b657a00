package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const blandBaseURL = "https://api.bland.ai"

// BlandClient places calls through the Bland AI conversational voice API.
type BlandClient struct {
	apiKey  string
	baseURL string
	http    *resty.Client
}

func NewBlandClient(apiKey string) *BlandClient {
	http := resty.New()
	http.SetTimeout(30 * time.Second)
	return &BlandClient{
		apiKey:  apiKey,
		baseURL: blandBaseURL,
		http:    http,
	}
}

type blandCallRequest struct {
	PhoneNumber   string `json:"phone_number"`
	Task          string `json:"task"`
	Voice         string `json:"voice,omitempty"`
	WebhookURL    string `json:"webhook,omitempty"`
	ReduceLatency bool   `json:"reduce_latency"`
	MaxDuration   int    `json:"max_duration"`
}

type blandCallResponse struct {
	CallID  string `json:"call_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PlaceCall dials the user with the given script and returns the
// provider's call ID. Status events arrive later on the webhook.
func (b *BlandClient) PlaceCall(ctx context.Context, phone, script, webhookURL string, maxDurationSecs int) (string, error) {
	if b.apiKey == "" {
		return "", fmt.Errorf("voice provider not configured")
	}

	var out blandCallResponse
	resp, err := b.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+b.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(blandCallRequest{
			PhoneNumber:   phone,
			Task:          script,
			Voice:         "maya",
			WebhookURL:    webhookURL,
			ReduceLatency: true,
			MaxDuration:   maxDurationSecs,
		}).
		SetResult(&out).
		Post(b.baseURL + "/v1/calls")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("bland API error %d: %s", resp.StatusCode(), resp.String())
	}
	if out.CallID == "" {
		return "", fmt.Errorf("bland API returned no call_id (status %q)", out.Status)
	}
	return out.CallID, nil
}
