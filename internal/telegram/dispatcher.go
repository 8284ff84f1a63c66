package telegram

import (
	"context"
	"strings"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/engine"
	"github.com/SoarinFerret/BreakWarden/internal/observability"
	"github.com/SoarinFerret/BreakWarden/internal/report"
	"github.com/SoarinFerret/BreakWarden/internal/session"
	"github.com/SoarinFerret/BreakWarden/internal/state"
)

type DispatcherOptions struct {
	Logger    slog.Logger
	Clock     quartz.Clock
	Config    *config.Config
	Sender    Sender
	Registry  *state.Registry
	Engine    *engine.Engine
	Generator *report.Generator
}

// Dispatcher routes incoming updates: /start and /report commands, and
// button presses carrying action tags.
type Dispatcher struct {
	logger    slog.Logger
	clock     quartz.Clock
	config    *config.Config
	sender    Sender
	registry  *state.Registry
	engine    *engine.Engine
	generator *report.Generator
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	return &Dispatcher{
		logger:    opts.Logger,
		clock:     opts.Clock,
		config:    opts.Config,
		sender:    opts.Sender,
		registry:  opts.Registry,
		engine:    opts.Engine,
		generator: opts.Generator,
	}
}

// HandleUpdate processes one update. Updates the bot does not act on are
// ignored without error.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		return d.handleCommand(ctx, update.Message)
	default:
		d.logger.Debug(ctx, "ignoring update", slog.F("update_id", update.UpdateID))
		return nil
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		d.logger.Warn(ctx, "command without sender or chat", slog.F("message_id", msg.MessageID))
		return nil
	}

	switch msg.Command() {
	case "start":
		d.registry.GetOrCreate(msg.Chat.ID, msg.From.ID, displayName(msg.From))
		d.recordTrackedUsers()
		reply := tgbotapi.NewMessage(msg.Chat.ID, welcomeText)
		reply.ReplyMarkup = Menu(d.config)
		return d.send(reply)
	case "report":
		summary, err := d.generator.OnDemand(msg.Chat.ID, msg.From.ID, d.clock.Now())
		if xerrors.Is(err, report.ErrUnauthorized) {
			d.logger.Warn(ctx, "report denied",
				slog.F("chat_id", msg.Chat.ID),
				slog.F("user_id", msg.From.ID),
			)
			return d.send(tgbotapi.NewMessage(msg.Chat.ID, adminsOnlyText))
		}
		if err != nil {
			return xerrors.Errorf("on-demand report: %w", err)
		}
		return d.send(tgbotapi.NewMessage(msg.Chat.ID, summary.Text))
	default:
		d.logger.Debug(ctx, "ignoring command", slog.F("command", msg.Command()))
		return nil
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if _, err := d.sender.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		d.logger.Warn(ctx, "answer callback", slog.Error(err))
	}

	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		d.logger.Warn(ctx, "callback without sender or message", slog.F("callback_id", query.ID))
		return nil
	}
	chatID := query.Message.Chat.ID

	action, err := session.ParseAction(query.Data, d.config.ActivityKinds())
	if err != nil {
		d.logger.Warn(ctx, "rejected callback data",
			slog.F("chat_id", chatID),
			slog.F("data", query.Data),
			slog.Error(err),
		)
		return d.edit(chatID, query.Message.MessageID, unknownInputText)
	}

	res, err := d.engine.Apply(engine.Input{
		TenantID: chatID,
		UserID:   query.From.ID,
		Name:     displayName(query.From),
		Action:   action,
		At:       d.clock.Now(),
	})
	if err != nil {
		d.logger.Warn(ctx, "rejected action",
			slog.F("chat_id", chatID),
			slog.F("action", action.String()),
			slog.Error(err),
		)
		return d.edit(chatID, query.Message.MessageID, unknownInputText)
	}
	d.recordResult(res)

	return d.edit(chatID, query.Message.MessageID, RenderResult(res))
}

func (d *Dispatcher) recordResult(res engine.Result) {
	observability.RecordAction(res.Action.String())
	if res.Late {
		observability.RecordLatePunch()
		observability.RecordFine(observability.ReasonLate, res.LateFine)
	}
	if res.Closed != nil && res.Closed.OverLimit {
		observability.RecordFine(observability.ReasonOverLimit, res.Closed.Fine)
	}
	d.recordTrackedUsers()
}

func (d *Dispatcher) recordTrackedUsers() {
	_, users := d.registry.Counts()
	observability.RecordTrackedUsers(users)
}

func (d *Dispatcher) edit(chatID int64, messageID int, text string) error {
	return d.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, Menu(d.config)))
}

func (d *Dispatcher) send(c tgbotapi.Chattable) error {
	if _, err := d.sender.Send(c); err != nil {
		return xerrors.Errorf("send reply: %w", err)
	}
	return nil
}

// displayName mirrors the client's full name, falling back to the username.
func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
