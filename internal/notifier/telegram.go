package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"AutoTrader/internal/model"

	"github.com/rs/zerolog"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	queueSize      = 64
)

// TelegramNotifier sends messages via the Telegram Bot API.
// With no bot token configured every send is a no-op.
// Session events go through a single queue so they arrive in order.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
	log      zerolog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan string
	done   chan struct{}
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log zerolog.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	t := &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  defaultAPIBase,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		log:   log,
		queue: make(chan string, queueSize),
		done:  make(chan struct{}),
	}
	go t.drain()
	return t
}

// Enabled reports whether a bot token and chat are configured.
func (t *TelegramNotifier) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if !t.Enabled() {
		return nil
	}
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := t.Client.Post(t.endpoint("sendMessage"), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			t.log.Warn().Err(err).
				Int("attempt", i+1).
				Int("attempts", maxRetries+1).
				Dur("backoff", backoff).
				Msg("telegram send failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// OnSessionEvent queues a session transition for delivery without blocking the caller.
func (t *TelegramNotifier) OnSessionEvent(evt model.SessionEvent) {
	if !t.Enabled() {
		return
	}
	t.enqueue(FormatSessionEvent(evt))
}

func (t *TelegramNotifier) enqueue(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		t.log.Warn().Msg("notifier closed, message dropped")
		return
	}
	select {
	case t.queue <- text:
	default:
		t.log.Warn().Msg("notification queue full, message dropped")
	}
}

func (t *TelegramNotifier) drain() {
	defer close(t.done)
	for text := range t.queue {
		if err := t.SendWithRetry(context.Background(), text, 2); err != nil {
			t.log.Error().Err(err).Msg("queued notification")
		}
	}
}

// Close stops accepting messages and waits until the queue is delivered or ctx is done.
func (t *TelegramNotifier) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifier close: %w", ctx.Err())
	}
}
