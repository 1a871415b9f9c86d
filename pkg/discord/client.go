// Package discord posts embeds to a Discord channel webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rental-service/internal/apperr"

	"go.uber.org/zap"
)

const service = "discord"

// MaxFields is the number of fields Discord accepts in one embed
const MaxFields = 25

// Embed colors
const (
	ColorBlue   = 0x3498db
	ColorGreen  = 0x2ecc71
	ColorYellow = 0xf39c12
	ColorRed    = 0xe74c3c
	ColorPurple = 0x9b59b6
	ColorLime   = 0x00ff00
)

// ErrNotConfigured is returned when no webhook URL is set
var ErrNotConfigured = apperr.Upstream(service, "Discord webhook URL chưa được cấu hình", nil)

// Field is one name/value pair of an embed
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Footer is the small text under an embed
type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// Image is a thumbnail or image attached to an embed
type Image struct {
	URL string `json:"url"`
}

// Embed is a rich message block
type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
	Thumbnail   *Image  `json:"thumbnail,omitempty"`
	Image       *Image  `json:"image,omitempty"`
}

// AddField appends a field unless the embed is already full
func (e *Embed) AddField(name, value string, inline bool) bool {
	if len(e.Fields) >= MaxFields {
		return false
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: value, Inline: inline})
	return true
}

// WebhookInfo is what Discord returns for a GET on the webhook URL
type WebhookInfo struct {
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
}

type payload struct {
	Embeds []Embed `json:"embeds"`
}

// Client sends messages to one webhook
type Client struct {
	WebhookURL string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a webhook client; an empty URL yields a client that
// reports ErrNotConfigured
func NewClient(webhookURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		WebhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// Configured reports whether a webhook URL is set
func (c *Client) Configured() bool {
	return c.WebhookURL != ""
}

// Send posts the embeds in a single message. Failures are not retried.
func (c *Client) Send(ctx context.Context, embeds ...Embed) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload{Embeds: embeds})
	if err != nil {
		return apperr.Upstream(service, "encode message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return apperr.Upstream(service, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Discord webhook request failed", zap.Error(err))
		return apperr.Upstream(service, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.Logger.Error("Discord webhook rejected message",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))
		return apperr.Upstream(service, fmt.Sprintf("status %d: %s", resp.StatusCode, respBody), nil)
	}

	c.Logger.Info("Discord webhook sent", zap.Int("embeds", len(embeds)))
	return nil
}

// Info fetches the webhook metadata, which doubles as a liveness check
func (c *Client) Info(ctx context.Context) (*WebhookInfo, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.WebhookURL, nil)
	if err != nil {
		return nil, apperr.Upstream(service, "build request", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream(service, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Upstream(service, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var info WebhookInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperr.Upstream(service, "decode webhook info", err)
	}
	return &info, nil
}
