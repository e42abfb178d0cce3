package platforms

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

const SignatureHeader = "X-Arena-Signature"

// WebhookAdapter posts a plain JSON body. When a secret is configured the
// body is signed with HMAC-SHA256 in SignatureHeader.
type WebhookAdapter struct {
	client *HTTPClient
}

func NewWebhookAdapter(client *HTTPClient) *WebhookAdapter {
	return &WebhookAdapter{client: client}
}

func (a *WebhookAdapter) Name() string {
	return "webhook"
}

type webhookField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type webhookPayload struct {
	SessionID   string         `json:"session_id,omitempty"`
	Event       string         `json:"event,omitempty"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Description string         `json:"description,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []webhookField `json:"fields,omitempty"`
}

func (a *WebhookAdapter) Send(ctx context.Context, endpoint, secret string, msg Message) error {
	payload := webhookPayload{
		SessionID:   msg.SessionID,
		Event:       msg.Event,
		Title:       msg.Title,
		Content:     msg.Content,
		Description: msg.Description,
		Timestamp:   msg.Timestamp,
	}
	for _, f := range msg.Fields {
		payload.Fields = append(payload.Fields, webhookField{Name: f.Name, Value: f.Value})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var headers map[string]string
	if secret != "" {
		headers = map[string]string{SignatureHeader: Sign(secret, raw)}
	}
	return a.client.PostRaw(ctx, endpoint, headers, raw)
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
