// Package telegram adapts the attendance engine to Telegram updates.
package telegram

import (
	"context"
	"strings"

	"cdr.dev/slog/v3"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/report"
)

// Sender is the part of the Bot API client the shim uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// NewBot connects to the Bot API with token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, xerrors.Errorf("connect bot api: %w", err)
	}
	return bot, nil
}

// SetupWebhook drops any previous webhook and registers url.
func SetupWebhook(ctx context.Context, logger slog.Logger, sender Sender, url string) error {
	if _, err := sender.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return xerrors.Errorf("delete webhook: %w", err)
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return xerrors.Errorf("build webhook %q: %w", redactToken(url), err)
	}
	if _, err := sender.Request(wh); err != nil {
		return xerrors.Errorf("set webhook: %w", err)
	}
	logger.Info(ctx, "webhook registered", slog.F("url", redactToken(url)))
	return nil
}

// redactToken hides the path segment after /webhook/.
func redactToken(url string) string {
	const marker = "/webhook/"
	i := strings.Index(url, marker)
	if i < 0 {
		return url
	}
	return url[:i+len(marker)] + "***"
}

// ChatSink delivers summaries to the tenant's chat.
type ChatSink struct {
	sender Sender
}

func NewChatSink(sender Sender) *ChatSink {
	return &ChatSink{sender: sender}
}

func (c *ChatSink) Name() string {
	return "telegram"
}

func (c *ChatSink) Deliver(_ context.Context, summary report.Summary) error {
	if _, err := c.sender.Send(tgbotapi.NewMessage(summary.TenantID, summary.Text)); err != nil {
		return xerrors.Errorf("send summary to chat %d: %w", summary.TenantID, err)
	}
	return nil
}
