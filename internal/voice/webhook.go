package voice

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Event is one call-status notification from the voice provider,
// normalized for the dispatcher. Events are delivered on a channel and
// consumed by a single goroutine; handlers never mutate state themselves.
type Event struct {
	CallID     string
	Status     string
	Transcript string
	ReceivedAt time.Time
}

// blandWebhookPayload is the subset of Bland's webhook body we read.
type blandWebhookPayload struct {
	CallID                 string `json:"call_id"`
	Status                 string `json:"status"`
	Completed              bool   `json:"completed"`
	ConcatenatedTranscript string `json:"concatenated_transcript"`
	ErrorMessage           string `json:"error_message"`
}

// WebhookServer receives asynchronous call-status events.
type WebhookServer struct {
	events chan Event
	srv    *http.Server
}

// NewWebhookServer builds the server. The events channel is buffered so
// a slow cycle never makes the provider's webhook delivery time out.
func NewWebhookServer(listenAddr string) *WebhookServer {
	ws := &WebhookServer{
		events: make(chan Event, 64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/call", ws.handleCallEvent)
	ws.srv = &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws
}

// Events is the stream consumed by the dispatcher.
func (ws *WebhookServer) Events() <-chan Event {
	return ws.events
}

// Start runs the HTTP server until Shutdown. Blocking.
func (ws *WebhookServer) Start() error {
	log.Printf("Webhook: listening on %s", ws.srv.Addr)
	err := ws.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener and closes the event stream.
func (ws *WebhookServer) Shutdown(ctx context.Context) error {
	err := ws.srv.Shutdown(ctx)
	close(ws.events)
	return err
}

func (ws *WebhookServer) handleCallEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload blandWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("Webhook: bad payload: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if payload.CallID == "" {
		http.Error(w, "missing call_id", http.StatusBadRequest)
		return
	}

	status := payload.Status
	if status == "" && payload.Completed {
		status = "completed"
	}

	ev := Event{
		CallID:     payload.CallID,
		Status:     status,
		Transcript: payload.ConcatenatedTranscript,
		ReceivedAt: time.Now(),
	}

	select {
	case ws.events <- ev:
		w.WriteHeader(http.StatusOK)
	default:
		// Queue full: tell the provider to retry later.
		log.Printf("Webhook: event queue full, dropping event for call %s", payload.CallID)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}
}
