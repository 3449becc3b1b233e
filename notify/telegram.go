// Package notify delivers the batch summary to a Telegram chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/auth"
)

// Config holds Telegram delivery settings. An empty BotToken or ChatID
// disables delivery.
type Config struct {
	BotToken string
	ChatID   string
	// Proxy optionally routes Bot API traffic through an HTTP(S) proxy.
	Proxy string
}

// Notifier sends Markdown reports to the Telegram Bot API.
type Notifier struct {
	config Config
	client *http.Client
	logger *logrus.Logger
}

// New creates a Notifier. A bad proxy URL is an error; the caller
// should fall back to running without notifications.
func New(config Config, logger *logrus.Logger) (*Notifier, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid notify proxy URL: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		logger.WithField("proxy", config.Proxy).Info("Telegram delivery will use a proxy")
	}

	return &Notifier{config: config, client: client, logger: logger}, nil
}

// Enabled reports whether delivery is configured.
func (n *Notifier) Enabled() bool {
	return n.config.BotToken != "" && n.config.ChatID != ""
}

// SendReport delivers the text to the configured chat. Failures are
// returned for logging; the run itself never depends on delivery.
func (n *Notifier) SendReport(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.config.BotToken)

	payload, err := json.Marshal(map[string]string{
		"chat_id":    n.config.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	n.logger.Info("Telegram report delivered")
	return nil
}

// BuildReport renders the per-account Markdown summary.
func BuildReport(siteName string, results []auth.SessionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s keep-alive report*\n", siteName)

	succeeded := 0
	for _, res := range results {
		if res.Outcome == auth.ResultSuccess {
			succeeded++
			fmt.Fprintf(&b, "✅ Account: `%s` - success\n", res.Identity)
		} else {
			fmt.Fprintf(&b, "❌ Account: `%s` - failed: %s\n", res.Identity, EscapeMarkdown(res.Detail))
		}
	}

	fmt.Fprintf(&b, "\n--- *Summary* ---\n")
	fmt.Fprintf(&b, "Total: %d, Succeeded: %d, Failed: %d", len(results), succeeded, len(results)-succeeded)
	return b.String()
}

// EscapeMarkdown escapes the characters the Bot API rejects inside
// Markdown messages.
func EscapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
