package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Discord webhook limits.
const (
	discordContentMax     = 2000
	discordDescriptionMax = 4096
	discordFieldValueMax  = 1024
	discordTitleMax       = 256
	discordUsername       = "Agent Arena"
)

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Footer      *discordFooter      `json:"footer,omitempty"`
	Fields      []discordEmbedField `json:"fields"`
}

type discordPayload struct {
	Username string         `json:"username"`
	Content  string         `json:"content"`
	Embeds   []discordEmbed `json:"embeds"`
}

// DiscordAdapter posts embeds to a webhook. Messages with a PanelKey are
// created once and edited afterwards, so a session keeps a single live
// board message.
type DiscordAdapter struct {
	client    *HTTPClient
	mu        sync.Mutex
	messageBy map[string]string
}

func NewDiscordAdapter(client *HTTPClient) *DiscordAdapter {
	return &DiscordAdapter{
		client:    client,
		messageBy: map[string]string{},
	}
}

func (a *DiscordAdapter) Name() string {
	return "discord"
}

func buildDiscordPayload(msg Message) discordPayload {
	embed := discordEmbed{
		Title:       clip(msg.Title, discordTitleMax),
		Description: clip(msg.Description, discordDescriptionMax),
		Color:       msg.Color,
		Timestamp:   msg.Timestamp,
		Fields:      make([]discordEmbedField, 0, len(msg.Fields)),
	}
	if msg.Footer != "" {
		embed.Footer = &discordFooter{Text: msg.Footer}
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   f.Name,
			Value:  clip(f.Value, discordFieldValueMax),
			Inline: f.Inline,
		})
	}
	return discordPayload{
		Username: discordUsername,
		Content:  clip(msg.Content, discordContentMax),
		Embeds:   []discordEmbed{embed},
	}
}

func (a *DiscordAdapter) Send(ctx context.Context, endpoint, _ string, msg Message) error {
	payload := buildDiscordPayload(msg)
	panel := strings.TrimSpace(msg.PanelKey)
	if panel == "" {
		return a.client.PostJSON(ctx, endpoint, nil, payload)
	}

	key := endpoint + "|" + panel
	msgID := a.getMessageID(key)
	if msgID == "" {
		return a.createPanel(ctx, endpoint, key, payload)
	}
	editURL, ok := messageEditURL(endpoint, msgID)
	if !ok {
		return a.client.PostJSON(ctx, endpoint, nil, payload)
	}
	status, _, err := a.client.PatchJSONWithResponse(ctx, editURL, nil, payload)
	if err == nil {
		return nil
	}
	if status != http.StatusNotFound {
		return err
	}
	// The panel message was deleted on the Discord side.
	return a.createPanel(ctx, endpoint, key, payload)
}

func (a *DiscordAdapter) createPanel(ctx context.Context, endpoint, key string, payload discordPayload) error {
	id, err := a.createPanelMessage(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	a.setMessageID(key, id)
	return nil
}

func (a *DiscordAdapter) getMessageID(key string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.messageBy[key]
}

func (a *DiscordAdapter) setMessageID(key, msgID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messageBy[key] = msgID
}

// ForgetPanel drops the stored message id once a session's board is final.
func (a *DiscordAdapter) ForgetPanel(endpoint, panelKey string) {
	key := strings.TrimSpace(endpoint) + "|" + strings.TrimSpace(panelKey)
	if key == "|" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.messageBy, key)
}

func (a *DiscordAdapter) createPanelMessage(ctx context.Context, endpoint string, payload discordPayload) (string, error) {
	waitEndpoint := endpoint
	if strings.Contains(waitEndpoint, "?") {
		waitEndpoint += "&wait=true"
	} else {
		waitEndpoint += "?wait=true"
	}
	_, body, err := a.client.PostJSONWithResponse(ctx, waitEndpoint, nil, payload)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(body, &created) == nil && strings.TrimSpace(created.ID) != "" {
		return created.ID, nil
	}
	return "", fmt.Errorf("discord webhook create message missing id")
}

// messageEditURL turns /api/webhooks/{id}/{token} into the edit endpoint
// for msgID.
func messageEditURL(endpoint, msgID string) (string, bool) {
	if strings.TrimSpace(endpoint) == "" || strings.TrimSpace(msgID) == "" {
		return "", false
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "webhooks" {
		return "", false
	}
	u.Path = "/api/webhooks/" + parts[2] + "/" + parts[3] + "/messages/" + msgID
	u.RawQuery = ""
	return u.String(), true
}

// clip cuts s to max runes, marking the cut with an ellipsis.
func clip(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
