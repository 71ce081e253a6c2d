// internal/telegram/bot.go
package telegram

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/events"
)

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Subscriber is the part of the event bus the notifier needs.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// Bot long-polls Telegram and answers commands.
type Bot struct {
	api      *tgbotapi.BotAPI
	commands *Commands
	logger   *zap.Logger
}

// NewBot authenticates with token and registers the command menu.
func NewBot(token string, commands *Commands, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	b := &Bot{api: api, commands: commands, logger: logger.Named("telegram")}

	menu := make([]tgbotapi.BotCommand, 0, len(Menu))
	for _, c := range Menu {
		menu = append(menu, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	if _, err := api.Request(tgbotapi.NewSetMyCommands(menu...)); err != nil {
		b.logger.Warn("Failed to set command menu", zap.Error(err))
	}

	b.logger.Info("📱 Telegram bot authorized", zap.String("username", api.Self.UserName))
	return b, nil
}

// API exposes the underlying client for notifications.
func (b *Bot) API() Sender {
	return b.api
}

// Run processes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram poller stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}

	reply := b.commands.Handle(ctx, userID, msg.Command())
	if err := send(b.api, msg.Chat.ID, reply); err != nil {
		b.logger.Warn("Failed to send reply", zap.String("command", msg.Command()), zap.Error(err))
	}
}

func send(api Sender, chatID int64, reply Reply) error {
	text := reply.Text
	out := tgbotapi.NewMessage(chatID, text)
	if reply.Pre {
		out.Text = "<pre>" + html.EscapeString(text) + "</pre>"
		out.ParseMode = tgbotapi.ModeHTML
	}
	_, err := api.Send(out)
	return err
}

// Notifier pushes trade events to one chat.
type Notifier struct {
	api    Sender
	chatID int64
	logger *zap.Logger
	subs   []events.Subscription
}

// NewNotifier subscribes to trade events and forwards them to chatID.
func NewNotifier(api Sender, chatID int64, bus Subscriber, logger *zap.Logger) *Notifier {
	n := &Notifier{api: api, chatID: chatID, logger: logger.Named("notifier")}
	for _, t := range []events.EventType{events.EntryExecuted, events.ExitExecuted, events.PositionClosed} {
		n.subs = append(n.subs, bus.Subscribe(t, events.HandlerFunc(n.Handle)))
	}
	return n
}

// Handle sends one event notification.
func (n *Notifier) Handle(_ context.Context, event events.Event) error {
	text, ok := FormatEvent(event)
	if !ok {
		return nil
	}
	if err := send(n.api, n.chatID, Reply{Text: text}); err != nil {
		n.logger.Warn("Failed to push notification", zap.Error(err))
		return err
	}
	return nil
}

// Close unsubscribes from the bus.
func (n *Notifier) Close() error {
	for _, s := range n.subs {
		s.Unsubscribe()
	}
	n.subs = nil
	return nil
}
