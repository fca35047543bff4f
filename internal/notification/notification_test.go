package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type captured struct {
	alerts []Alert
	err    error
}

func (c *captured) Send(ctx context.Context, a Alert) error {
	c.alerts = append(c.alerts, a)
	return c.err
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	ok := &captured{}
	bad := &captured{err: errors.New("down")}
	m := Multi{bad, ok}

	err := m.Send(context.Background(), Alert{Level: AlertInfo, Title: "bracket placed"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.alerts) != 1 {
		t.Fatal("healthy notifier should still receive the alert")
	}
	if ok.alerts[0].At.IsZero() {
		t.Error("expected timestamp to be stamped")
	}
}

func TestMinLevel(t *testing.T) {
	c := &captured{}
	f := MinLevel{Level: AlertWarning, Next: c}
	ctx := context.Background()

	f.Send(ctx, Alert{Level: AlertInfo})
	f.Send(ctx, Alert{Level: AlertWarning})
	f.Send(ctx, Alert{Level: AlertCritical})

	if len(c.alerts) != 2 {
		t.Errorf("expected 2 forwarded alerts, got %d", len(c.alerts))
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "rollback failed", Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatal(err)
	}
	if got["level"] != "CRITICAL" || got["symbol"] != "BTCUSDT" || got["source"] != "tabot" || got["event"] != "alert" {
		t.Errorf("unexpected payload: %v", got)
	}
}

func bracketAlert() Alert {
	return Alert{
		Level:  AlertWarning,
		Title:  "bracket ROLLED_BACK",
		Symbol: "ETHUSDT",
		Bracket: &Bracket{
			Strategy: "adx-macd", Side: "BUY", Status: "ROLLED_BACK",
			Quantity: 0.05, Entry: 2000, StopLoss: 1980.5, TakeProfit: 2061, Vote: 0.75,
			Legs: []Leg{{Kind: "entry", OrderID: "e-1"}, {Kind: "stop-loss", OrderID: "sl-2"}},
		},
		Error: &ExchangeError{Code: -2021, Message: "Order would immediately trigger."},
	}
}

func TestWebhookNotifier_BracketPayload(t *testing.T) {
	var got WebhookPayload
	var level string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level = r.Header.Get("X-Tabot-Level")
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), bracketAlert()); err != nil {
		t.Fatal(err)
	}
	if level != "WARNING" || got.Event != "ROLLED_BACK" {
		t.Errorf("level %q event %q", level, got.Event)
	}
	if got.Bracket == nil || got.Bracket.StopLoss != 1980.5 || len(got.Bracket.Legs) != 2 || got.Bracket.Legs[1].OrderID != "sl-2" {
		t.Errorf("bracket = %+v", got.Bracket)
	}
	if got.Error == nil || got.Error.Code != -2021 {
		t.Errorf("error = %+v", got.Error)
	}
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{}); err == nil {
		t.Error("expected error on 502")
	}
}

func TestTelegramNotifier(t *testing.T) {
	var path string
	var body struct {
		ChatID    string `json:"chat_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.BaseURL = srv.URL
	if err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "rolled back", Symbol: "ETHUSDT", Message: "tp rejected (-2021)"}); err != nil {
		t.Fatal(err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("unexpected path %s", path)
	}
	if body.ChatID != "42" || body.ParseMode != "MarkdownV2" {
		t.Errorf("unexpected body %+v", body)
	}
	if !strings.Contains(body.Text, `tp rejected \(\-2021\)`) || !strings.Contains(body.Text, "ETHUSDT rolled back") {
		t.Errorf("text not escaped as expected: %q", body.Text)
	}
}

func TestTelegramText_BracketCard(t *testing.T) {
	text := telegramText(bracketAlert())
	for _, want := range []string{
		`*ETHUSDT bracket ROLLED\_BACK*`,
		"```\n",
		"order    BUY 0.05 @ 2,000\n",
		"stop     1,980.5\n",
		"stop-loss sl-2\n",
		"`-2021` Order would immediately trigger\\.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b.c!"); got != `a\_b\.c\!` {
		t.Errorf("got %q", got)
	}
}
