package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"driftwatch-go/src/models"
)

// TelegramNotifier pushes trade decisions to a Telegram chat. A notifier
// built without credentials is disabled and silently drops messages.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
	enabled  bool
}

// NewTelegramNotifier creates a notifier for the given bot and chat.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		enabled: botToken != "" && chatID != "",
	}
}

// NewTelegramNotifierFromEnv reads TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID; with either unset the notifier stays disabled.
func NewTelegramNotifierFromEnv() *TelegramNotifier {
	return NewTelegramNotifier(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
}

// Enabled reports whether messages will actually be sent.
func (tn *TelegramNotifier) Enabled() bool { return tn.enabled }

// NotifyDecision sends one trade decision with its market price.
func (tn *TelegramNotifier) NotifyDecision(product string, decision models.TradeSignal, price float64) error {
	text := fmt.Sprintf("<b>%s</b> %s @ %.2f\n%s\n%s UTC",
		decision.Signal, product, price, decision.Reason, decision.Time)
	return tn.SendMessage(text)
}

// SendMessage sends a raw HTML-formatted message.
func (tn *TelegramNotifier) SendMessage(text string) error {
	if !tn.enabled {
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", tn.botToken)

	payload := map[string]interface{}{
		"chat_id":    tn.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
