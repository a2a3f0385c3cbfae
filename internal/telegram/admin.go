package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"search-chatter/internal/admin"
	"search-chatter/internal/store"
)

const noChannelsText = "📢 Обязательных каналов пока нет"

func (b *Bot) handleAdminPanel(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.sendMessage(msg.Chat.ID, "❌ У вас нет доступа к админ-панели")
		return
	}
	snap, err := b.admin.Overview(ctx, b.now())
	if err != nil {
		b.logger.Error("failed to build overview", zap.Error(err))
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("❌ Ошибка: %v", err))
		return
	}
	b.sendFormatted(msg.Chat.ID, adminPanelText(snap))
}

// handleAdminCommand expects the caller to have checked admin rights.
func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "detailed_stats":
		snap, err := b.admin.Overview(ctx, b.now())
		if err != nil {
			b.logger.Error("failed to build overview", zap.Error(err))
			b.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %v", err))
			return
		}
		b.sendFormatted(chatID, detailedStatsText(snap))
	case "broadcast":
		b.setState(userID, stateBroadcast)
		b.sendMessage(chatID, "📝 Отправь сообщение для рассылки (текст, фото, видео):")
	case "add_channel":
		b.setState(userID, stateAddChannel)
		b.sendMessage(chatID, addChannelPrompt)
	case "list_channels":
		channels, ok := b.loadChannels(ctx, chatID)
		if !ok {
			return
		}
		b.sendFormatted(chatID, channelListText(channels))
	case "remove_channel":
		channels, ok := b.loadChannels(ctx, chatID)
		if !ok {
			return
		}
		b.setState(userID, stateRemoveChannel)
		b.sendMessage(chatID, removeChannelPrompt(channels))
	}
}

// loadChannels answers the admin directly when the list is empty or unreadable.
func (b *Bot) loadChannels(ctx context.Context, chatID int64) ([]store.Channel, bool) {
	channels, err := b.admin.Channels(ctx)
	if err != nil {
		b.logger.Error("failed to load channels", zap.Error(err))
		b.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %v", err))
		return nil, false
	}
	if len(channels) == 0 {
		b.sendMessage(chatID, noChannelsText)
		return nil, false
	}
	return channels, true
}

func (b *Bot) processAddChannel(ctx context.Context, msg *tgbotapi.Message) {
	ch, err := b.admin.AddChannel(ctx, msg.Text)
	switch {
	case err == nil:
		b.sendMessage(msg.Chat.ID, channelAddedText(ch))
	case errors.Is(err, admin.ErrTooFewLines):
		b.sendMessage(msg.Chat.ID, "❌ Нужно отправить 3 строки: ссылка, ID канала и текст кнопки")
	case errors.Is(err, admin.ErrBadLink):
		b.sendMessage(msg.Chat.ID, "❌ Ссылка должна начинаться с http:// или https://")
	case errors.Is(err, admin.ErrBadChatID):
		b.sendMessage(msg.Chat.ID, "❌ ID канала должен быть числом (например: -1001234567890)")
	default:
		b.logger.Error("failed to add channel", zap.Error(err))
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("❌ Ошибка: %v", err))
	}
}

func (b *Bot) processRemoveChannel(ctx context.Context, msg *tgbotapi.Message) {
	pos, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		b.sendMessage(msg.Chat.ID, "❌ Нужно отправить номер канала")
		return
	}
	ch, err := b.admin.RemoveChannel(ctx, pos)
	switch {
	case err == nil:
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Канал %s удален!", ch.ButtonText))
	case errors.Is(err, store.ErrChannelIndex):
		b.sendMessage(msg.Chat.ID, "❌ Канала с таким номером нет")
	default:
		b.logger.Error("failed to remove channel", zap.Error(err))
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("❌ Ошибка: %v", err))
	}
}

// runBroadcast copies msg to every known user and reports the counts by
// editing the status message.
func (b *Bot) runBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	bctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !b.beginBroadcast(cancel) {
		b.sendMessage(chatID, "⏳ Рассылка уже выполняется, дождитесь завершения или отправьте /cancel")
		return
	}
	defer b.endBroadcast()

	recipients, err := b.admin.Recipients(ctx)
	if err != nil {
		b.logger.Error("failed to load recipients", zap.Error(err))
		b.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %v", err))
		return
	}

	status, err := b.s.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("📤 Начинаю рассылку для %d пользователей...", len(recipients))))
	if err != nil {
		b.logger.Warn("failed to send broadcast status", zap.Error(err))
	}

	res := b.dispatcher.Run(bctx, recipients, func(_ context.Context, recipient int64) error {
		_, err := b.s.Request(tgbotapi.NewCopyMessage(recipient, chatID, msg.MessageID))
		return err
	})

	report := broadcastReport(res)
	if status.MessageID == 0 {
		b.sendMessage(chatID, report)
		return
	}
	if _, err := b.s.Send(tgbotapi.NewEditMessageText(chatID, status.MessageID, report)); err != nil {
		b.logger.Warn("failed to edit broadcast status", zap.Error(err))
		b.sendMessage(chatID, report)
	}
}
