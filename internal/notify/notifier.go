// Package notify defines the outbound message surface the ledger talks
// to. The ledger formats text and picks a logical channel; transport is
// someone else's problem.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/pkg/logger"
)

// Notifier delivers formatted text to a kind's configured channel.
type Notifier interface {
	Send(ctx context.Context, kind catalog.Kind, channel, text string) error
}

// MentionResolver turns an owner id into a mention string when the
// owner is resolvable on the chat platform.
type MentionResolver interface {
	Mention(ownerID string) (string, bool)
}

// NoMentions resolves nothing; mentions are simply omitted.
type NoMentions struct{}

func (NoMentions) Mention(string) (string, bool) { return "", false }

// LogNotifier writes outbound messages to the structured log. Used in
// development and as a fallback transport.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Send(ctx context.Context, kind catalog.Kind, channel, text string) error {
	logCtx := n.logg.WithKind(ctx, string(kind))
	logCtx = n.logg.WithFields(logCtx, map[string]any{
		"channel": channel,
		"text":    text,
	})
	n.logg.Info(logCtx, "notify.send")
	return nil
}

// WebhookNotifier posts outbound messages as JSON to a single webhook
// endpoint, carrying the logical channel in the payload.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Kind    string `json:"kind"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

func (n *WebhookNotifier) Send(ctx context.Context, kind catalog.Kind, channel, text string) error {
	body, err := json.Marshal(webhookPayload{Kind: string(kind), Channel: channel, Text: text})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
