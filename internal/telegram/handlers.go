package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	gateText       = "⚠️ Для использования бота необходимо подписаться на наши каналы:"
	searchingText  = "🌐 Ищу информацию в интернете..."
	notSubscribed  = "❌ Вы еще не подписались на все каналы!"
	subscribedText = "✅ Отлично! Теперь можешь пользоваться ботом.\n\n🤖 Просто напиши вопрос и я найду информацию в интернете!"
)

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	b.registerUser(ctx, userID)

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if b.isAdmin(userID) {
		switch b.state(userID) {
		case stateBroadcast:
			b.setState(userID, stateNone)
			b.runBroadcast(ctx, msg)
			return
		case stateAddChannel:
			b.setState(userID, stateNone)
			b.processAddChannel(ctx, msg)
			return
		case stateRemoveChannel:
			b.setState(userID, stateNone)
			b.processRemoveChannel(ctx, msg)
			return
		}
	}

	if msg.Text == "" {
		return
	}
	b.handleQuestion(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.sendFormatted(msg.Chat.ID, helpText)
	case "clear":
		b.assistant.Reset(userID)
		b.sendMessage(msg.Chat.ID, "🗑 История очищена!")
	case "stats":
		questions, turns := b.assistant.Stats(userID)
		b.sendFormatted(msg.Chat.ID, userStatsText(questions, turns))
	case "cancel":
		b.handleCancel(msg)
	case "admin":
		b.handleAdminPanel(ctx, msg)
	case "detailed_stats", "broadcast", "add_channel", "list_channels", "remove_channel":
		if !b.isAdmin(userID) {
			return
		}
		b.handleAdminCommand(ctx, msg)
	default:
		if msg.Text != "" {
			b.handleQuestion(ctx, msg)
		}
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if !b.checkGate(ctx, msg.From.ID, msg.Chat.ID) {
		return
	}
	b.sendMessage(msg.Chat.ID, welcomeText(msg.From.FirstName))
}

// checkGate reports whether the user may proceed. Missing subscriptions are
// answered with the join keyboard.
func (b *Bot) checkGate(ctx context.Context, userID, chatID int64) bool {
	if b.gate == nil {
		return true
	}
	res, err := b.gate.Check(ctx, userID)
	if err != nil {
		b.logger.Error("subscription check failed", zap.Int64("user_id", userID), zap.Error(err))
		return true
	}
	if res.Subscribed {
		return true
	}
	out := tgbotapi.NewMessage(chatID, gateText)
	out.ReplyMarkup = subscriptionKeyboard(res.Missing)
	if _, err := b.s.Send(out); err != nil {
		b.logger.Warn("failed to send subscription prompt", zap.Int64("user_id", userID), zap.Error(err))
	}
	return false
}

func (b *Bot) handleQuestion(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if !b.checkGate(ctx, userID, msg.Chat.ID) {
		return
	}

	b.logger.Info("incoming question", zap.Int64("user_id", userID), zap.String("username", msg.From.UserName))

	wait, err := b.s.Send(tgbotapi.NewMessage(msg.Chat.ID, searchingText))
	if err != nil {
		b.logger.Warn("failed to send placeholder", zap.Int64("user_id", userID), zap.Error(err))
	}

	answer := b.assistant.Ask(ctx, userID, msg.Text)

	if err == nil {
		if _, derr := b.s.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, wait.MessageID)); derr != nil {
			b.logger.Debug("failed to delete placeholder", zap.Error(derr))
		}
	}
	for _, part := range splitMessage(answer, maxMessageRunes) {
		b.sendMessage(msg.Chat.ID, part)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Data != checkSubData {
		return
	}
	userID := cb.From.ID
	b.registerUser(ctx, userID)

	subscribed := true
	if b.gate != nil {
		res, err := b.gate.Check(ctx, userID)
		if err != nil {
			b.logger.Error("subscription check failed", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			subscribed = res.Subscribed
		}
	}

	if !subscribed {
		if _, err := b.s.Request(tgbotapi.NewCallbackWithAlert(cb.ID, notSubscribed)); err != nil {
			b.logger.Warn("failed to answer callback", zap.Error(err))
		}
		return
	}

	if cb.Message != nil {
		if _, err := b.s.Request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)); err != nil {
			b.logger.Debug("failed to delete subscription prompt", zap.Error(err))
		}
		b.sendMessage(cb.Message.Chat.ID, subscribedText)
	}
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) handleCancel(msg *tgbotapi.Message) {
	userID := msg.From.ID
	hadState := b.state(userID) != stateNone
	b.setState(userID, stateNone)

	if b.isAdmin(userID) && b.cancelBroadcast() {
		b.sendMessage(msg.Chat.ID, "⛔ Останавливаю рассылку...")
		return
	}
	if hadState {
		b.sendMessage(msg.Chat.ID, "❌ Действие отменено")
		return
	}
	b.sendMessage(msg.Chat.ID, "Нечего отменять")
}
