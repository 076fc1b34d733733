// Package notify pushes reservation lifecycle events to operators over
// Telegram.
package notify

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/reginald-chapple/gembook/internal/events"
	"github.com/reginald-chapple/gembook/internal/models"
)

// MessageSender is the part of the bot API the notifier uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier forwards booking events to an operator chat. It is a
// best-effort channel: delivery failures are logged, never propagated
// into the booking flow.
type TelegramNotifier struct {
	bot    MessageSender
	chatID int64
	logger *zerolog.Logger
}

// NewTelegramNotifier connects to the bot API.
func NewTelegramNotifier(token string, chatID int64, debug bool, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = debug
	logger.Info().Str("bot", bot.Self.UserName).Msg("Telegram notifier connected")
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// NewTelegramNotifierWithSender is used by tests to inject a fake bot.
func NewTelegramNotifierWithSender(sender MessageSender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: sender, chatID: chatID, logger: logger}
}

// SubscribeTo registers the notifier for reservation lifecycle events.
func (n *TelegramNotifier) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.TypeReservationReserved, n.handleEvent)
	bus.Subscribe(events.TypeReservationReleased, n.handleEvent)
	bus.Subscribe(events.TypeReservationConflict, n.handleEvent)
}

func (n *TelegramNotifier) handleEvent(event events.Event) error {
	var r models.Reservation
	if err := json.Unmarshal(event.Payload, &r); err != nil {
		n.logger.Warn().Err(err).Str("event", event.Type).Msg("unreadable event payload")
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, formatMessage(event.Type, &r))
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to notify operators")
	}
	return nil
}

func formatMessage(eventType string, r *models.Reservation) string {
	var verb string
	switch eventType {
	case events.TypeReservationReserved:
		verb = "✅ Reserved"
	case events.TypeReservationReleased:
		verb = "↩️ Released"
	case events.TypeReservationConflict:
		verb = "⚠️ Conflict"
	default:
		verb = eventType
	}

	label := r.Interval.Label
	if label == "" {
		label = fmt.Sprintf("%s - %s",
			r.Interval.Start.Format("2006-01-02 15:04"),
			r.Interval.End.Format("2006-01-02 15:04"))
	}

	return fmt.Sprintf("%s\nItem #%d, order #%d\n%s\nPrice: %.2f",
		verb, r.ItemID, r.OrderID, label, r.PriceCharged)
}
