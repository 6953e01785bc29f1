package publication

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type stubSender struct {
	sent    []tgbotapi.Chattable
	err     error
	blockOn chan struct{} // when set, Send blocks until closed
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.blockOn != nil {
		<-s.blockOn
	}
	s.sent = append(s.sent, c)
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	return tgbotapi.Message{MessageID: 77}, nil
}

func TestTelegramDeliver_TextAndPhoto(t *testing.T) {
	stub := &stubSender{}
	tr := &telegramTransport{bot: stub}

	d, err := tr.Deliver(context.Background(), Message{ChatID: "-1001", Text: "deal"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if d.MessageID != "77" {
		t.Fatalf("message id = %q, want 77", d.MessageID)
	}
	if _, ok := stub.sent[0].(tgbotapi.MessageConfig); !ok {
		t.Fatalf("plain message expected, sent %T", stub.sent[0])
	}

	if _, err := tr.Deliver(context.Background(), Message{
		ChatID: "-1001", Text: "deal", ImageURL: "https://img.example/x.jpg",
	}); err != nil {
		t.Fatalf("Deliver photo: %v", err)
	}
	if _, ok := stub.sent[1].(tgbotapi.PhotoConfig); !ok {
		t.Fatalf("photo expected, sent %T", stub.sent[1])
	}
}

func TestTelegramDeliver_SendErrorSurfaces(t *testing.T) {
	tr := &telegramTransport{bot: &stubSender{err: errors.New("forbidden: bot was kicked")}}
	if _, err := tr.Deliver(context.Background(), Message{ChatID: "-1001", Text: "deal"}); err == nil {
		t.Fatal("expected the transport error to surface")
	}
}

func TestTelegramDeliver_InvalidChatID(t *testing.T) {
	tr := &telegramTransport{bot: &stubSender{}}
	if _, err := tr.Deliver(context.Background(), Message{ChatID: "not-a-chat"}); err == nil {
		t.Fatal("expected an error for a non-numeric chat id")
	}
}

// A hung send must not outlive the caller's deadline: Deliver returns the
// context error while the connection is still stuck.
func TestTelegramDeliver_ContextCancelsHungSend(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	tr := &telegramTransport{bot: &stubSender{blockOn: release}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.Deliver(ctx, Message{ChatID: "-1001", Text: "deal"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Deliver blocked for %s despite the deadline", elapsed)
	}
}
