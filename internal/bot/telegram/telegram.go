// Package telegram connects the bot to the Telegram Bot API, either by long
// polling or by receiving webhook calls.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"flowerbot/internal/bot"
	applog "flowerbot/internal/log"
)

const pollTimeout = 30 // seconds

// Dispatch handles one incoming message.
type Dispatch func(ctx context.Context, m bot.Message)

type Client struct {
	api    *tgbotapi.BotAPI
	logger *applog.Logger
}

var _ bot.Sender = (*Client)(nil)

// New authenticates the token against the Bot API.
func New(token string, logger *applog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return newClient(api, logger), nil
}

// NewWithEndpoint is New against a custom API endpoint, formatted like
// tgbotapi.APIEndpoint.
func NewWithEndpoint(token, endpoint string, client *http.Client, logger *applog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return newClient(api, logger), nil
}

func newClient(api *tgbotapi.BotAPI, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Client{api: api, logger: logger.WithComponent(applog.ComponentTelegram)}
}

// Username is the bot's @handle as reported by getMe.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Send delivers text as Markdown. When Telegram rejects the markup, usually
// because a name contains an underscore or asterisk, the text is resent plain.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.api.Send(msg)
	if err == nil {
		return nil
	}
	if !isParseError(err) {
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.logger.WarnContext(ctx, "Markdown rejected, resending as plain text",
		applog.FieldChatID, chatID, applog.FieldError, err)
	msg.ParseMode = ""
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "can't parse entities")
	}
	return false
}

// Poll removes any webhook and long-polls for updates until ctx is done.
// Updates are dispatched one at a time in arrival order.
func (c *Client) Poll(ctx context.Context, dispatch Dispatch) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := c.api.GetUpdatesChan(u)
	c.logger.InfoContext(ctx, "Polling for updates", "username", c.Username())

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if m, ok := toMessage(update); ok {
				dispatch(ctx, m)
			}
		}
	}
}

// SetWebhook registers url with Telegram as the update target.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	c.logger.InfoContext(ctx, "Webhook registered", "username", c.Username())
	return nil
}

// WebhookHandler decodes one update per request and dispatches it before
// answering, so Telegram redelivers only when processing never started.
func (c *Client) WebhookHandler(dispatch Dispatch) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := c.api.HandleUpdate(r)
		if err != nil {
			c.logger.WarnContext(r.Context(), "Rejected webhook update",
				applog.FieldRequestID, applog.RequestID(r.Context()), applog.FieldError, err)
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}
		if m, ok := toMessage(*update); ok {
			dispatch(r.Context(), m)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// toMessage keeps text messages only; edits, joins and media are skipped.
func toMessage(u tgbotapi.Update) (bot.Message, bool) {
	if u.Message == nil || u.Message.Chat == nil || u.Message.Text == "" {
		return bot.Message{}, false
	}
	m := bot.Message{ChatID: u.Message.Chat.ID, Text: u.Message.Text}
	if u.Message.From != nil {
		m.FirstName = u.Message.From.FirstName
	}
	return m, true
}
