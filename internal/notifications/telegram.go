package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	agenterr "github.com/ducminhle1904/equity-trading-agent/internal/errors"
)

// TelegramNotifier delivers agent alerts to a Telegram chat. Circuit
// breaker halts and strategy disables go out through here.
type TelegramNotifier struct {
	token  string
	chatID string
	client *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	emoji := "ℹ️"
	switch level {
	case "warning":
		emoji = "⚠️"
	case "error":
		emoji = "🚨"
	case "success":
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *Trading Agent Alert*\n\n%s", emoji, message)

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := t.client.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return agenterr.Wrap(agenterr.CategoryNotify, "telegram", "send",
			"request failed", err).AsRetryable()
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return agenterr.New(agenterr.CategoryNotify, "telegram", "send",
			fmt.Sprintf("API returned status %d", resp.StatusCode))
	}

	return nil
}
