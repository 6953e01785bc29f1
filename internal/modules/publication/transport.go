package publication

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramHTTPTimeout caps one API round trip, so a dead connection cannot
// outlive the per-channel deadline by much.
const telegramHTTPTimeout = 30 * time.Second

// Message is one rendered announcement addressed to a single channel.
type Message struct {
	ChatID   string // external chat identity, transport-specific format
	Text     string
	ImageURL string
}

// Delivery reports a successful send.
type Delivery struct {
	MessageID string // external id assigned by the transport
}

// Transport is the channel-agnostic delivery interface. To support a new
// destination (e.g. Discord, WhatsApp), implement this interface.
type Transport interface {
	Deliver(ctx context.Context, msg Message) (*Delivery, error)
}

// ── Telegram adapter ──────────────────────────────────────────────────────────

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegramTransport struct {
	bot botSender
}

// NewTelegramTransport authenticates the bot against the Telegram API.
func NewTelegramTransport(token string) (Transport, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint,
		&http.Client{Timeout: telegramHTTPTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &telegramTransport{bot: bot}, nil
}

func (t *telegramTransport) Deliver(ctx context.Context, msg Message) (*Delivery, error) {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q: %w", msg.ChatID, err)
	}

	var c tgbotapi.Chattable
	if msg.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.ImageURL))
		photo.Caption = msg.Text
		c = photo
	} else {
		c = tgbotapi.NewMessage(chatID, msg.Text)
	}

	// The bot API has no context support, so the send runs off to the side
	// and the caller's deadline wins over a hung connection.
	type result struct {
		sent tgbotapi.Message
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sent, err := t.bot.Send(c)
		done <- result{sent: sent, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("telegram send to %s: %w", msg.ChatID, r.err)
		}
		return &Delivery{MessageID: strconv.Itoa(r.sent.MessageID)}, nil
	}
}
