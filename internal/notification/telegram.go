package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// TelegramAPI is the Bot API base URL.
const TelegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to a chat through the Bot API. Trade alerts
// render as a card: a headline, then the bracket levels and order ids in a
// fixed-width block.
type TelegramNotifier struct {
	token  string
	chatID string
	client *http.Client

	// BaseURL defaults to TelegramAPI.
	BaseURL string
}

// NewTelegramNotifier creates a notifier for chatID using a @BotFather token.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
		BaseURL: TelegramAPI,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
	Silent    bool   `json:"disable_notification,omitempty"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:    t.chatID,
		Text:      telegramText(alert),
		ParseMode: "MarkdownV2",
		Silent:    alert.Level == AlertInfo,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Description string `json:"description"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, apiErr.Description)
	}

	slog.Debug("telegram alert sent", "symbol", alert.Symbol, "title", alert.Title)
	return nil
}

func telegramText(a Alert) string {
	icon := "ℹ️"
	switch a.Level {
	case AlertWarning:
		icon = "⚠️"
	case AlertCritical:
		icon = "🚨"
	}

	var sb strings.Builder
	head := a.Title
	if a.Symbol != "" {
		head = a.Symbol + " " + head
	}
	fmt.Fprintf(&sb, "%s *%s*\n", icon, escapeMarkdown(head))

	if b := a.Bracket; b != nil {
		var card strings.Builder
		fmt.Fprintf(&card, "%-8s %s %s\n", "strategy", b.Strategy, b.Status)
		fmt.Fprintf(&card, "%-8s %s %s @ %s\n", "order", b.Side, humanize.Ftoa(b.Quantity), humanize.Commaf(b.Entry))
		fmt.Fprintf(&card, "%-8s %s\n", "stop", humanize.Commaf(b.StopLoss))
		fmt.Fprintf(&card, "%-8s %s\n", "target", humanize.Commaf(b.TakeProfit))
		fmt.Fprintf(&card, "%-8s %+.2f\n", "vote", b.Vote)
		for _, l := range b.Legs {
			fmt.Fprintf(&card, "%-8s %s\n", l.Kind, l.OrderID)
		}
		sb.WriteString("```\n")
		sb.WriteString(escapeCode(card.String()))
		sb.WriteString("```\n")
	} else if a.Message != "" {
		sb.WriteString(escapeMarkdown(a.Message))
		sb.WriteByte('\n')
	}

	if e := a.Error; e != nil {
		fmt.Fprintf(&sb, "`%d` %s\n", e.Code, escapeMarkdown(e.Message))
	}
	return sb.String()
}

// escapeMarkdown escapes text outside entities for MarkdownV2.
func escapeMarkdown(s string) string {
	const specials = "_*[]()~`>#+-=|{}.!\\"
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(specials, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// escapeCode escapes text inside a pre block, where only ` and \ are special.
func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
}
