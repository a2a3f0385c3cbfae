package telegram

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"search-chatter/internal/analytics"
	"search-chatter/internal/broadcast"
	"search-chatter/internal/store"
)

// maxMessageRunes is the Telegram limit for a single text message.
const maxMessageRunes = 4096

// splitMessage cuts text into chunks of at most limit runes.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	parts := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

func subscriptionKeyboard(channels []store.Channel) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(ch.ButtonText, ch.Link),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Проверить подписку", checkSubData),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func welcomeText(firstName string) string {
	return fmt.Sprintf("👋 Привет, %s!\n\n"+
		"🤖 Я AI-бот с поиском в интернете 🌐\n\n"+
		"Я ищу актуальную информацию для каждого вопроса!\n\n"+
		"📋 Команды:\n"+
		"/start - Начать\n"+
		"/clear - Очистить историю\n"+
		"/help - Помощь\n"+
		"/stats - Статистика", firstName)
}

const helpText = "ℹ️ <b>Инструкция:</b>\n\n" +
	"Пиши любые вопросы - бот ищет информацию в интернете и дает ответ! 🌐\n\n" +
	"<b>Команды:</b>\n" +
	"/clear - Очистить историю\n" +
	"/stats - Статистика\n" +
	"/help - Помощь"

func userStatsText(questions, turns int) string {
	return fmt.Sprintf("📊 <b>Статистика:</b>\n\n"+
		"💬 Сообщений: %d\n"+
		"📝 В истории: %d\n"+
		"🌐 Поиск: DuckDuckGo (всегда включен)", questions, turns)
}

func adminPanelText(s analytics.Snapshot) string {
	return fmt.Sprintf("👨‍💼 <b>АДМИН-ПАНЕЛЬ</b>\n\n"+
		"📊 <b>Статистика пользователей:</b>\n"+
		"👥 Всего пользователей: %d\n"+
		"✅ Активных (за 7 дней): %d\n"+
		"🚫 Заблокировали бота: %d\n"+
		"📢 Обязательных каналов: %d\n\n"+
		"<b>Команды:</b>\n"+
		"/broadcast - Сделать рассылку\n"+
		"/add_channel - Добавить канал\n"+
		"/remove_channel - Удалить канал\n"+
		"/list_channels - Список каналов\n"+
		"/detailed_stats - Детальная статистика\n"+
		"/cancel - Отменить действие или рассылку",
		s.TotalUsers, s.Active7d, s.Blocked, s.Channels)
}

func detailedStatsText(s analytics.Snapshot) string {
	return fmt.Sprintf("📊 <b>ДЕТАЛЬНАЯ СТАТИСТИКА БОТА</b>\n\n"+
		"👥 <b>Пользователи:</b>\n"+
		"• Всего: %d\n"+
		"• Активных за 24 часа: %d\n"+
		"• Активных за 7 дней: %d\n"+
		"• Активных за 30 дней: %d\n"+
		"• Неактивных (30+ дней): %d\n"+
		"• Заблокировали бота: %d\n\n"+
		"📢 <b>Каналы:</b>\n"+
		"• Обязательных каналов: %d\n\n"+
		"💬 <b>Активность:</b>\n"+
		"• Активных диалогов: %d\n"+
		"• Процент удержания: %.1f%%",
		s.TotalUsers, s.Active1d, s.Active7d, s.Active30d, s.Inactive, s.Blocked,
		s.Channels, s.ActiveDialogs, s.Retention)
}

const addChannelPrompt = "📢 Отправь данные канала в формате (3 строки):\n\n" +
	"Строка 1: Ссылка на канал\n" +
	"Строка 2: ID канала\n" +
	"Строка 3: Текст кнопки\n\n" +
	"Пример:\n" +
	"https://t.me/mychannel\n" +
	"-1001234567890\n" +
	"📢 Наш канал"

func channelAddedText(ch store.Channel) string {
	return fmt.Sprintf("✅ Канал добавлен!\n\n🔗 Ссылка: %s\n🆔 ID: %d\n📝 Кнопка: %s", ch.Link, ch.ChatID, ch.ButtonText)
}

// channelListText is sent with HTML parse mode, so user-supplied fields are escaped.
func channelListText(channels []store.Channel) string {
	var b strings.Builder
	b.WriteString("📢 <b>Список обязательных каналов:</b>\n\n")
	for i, ch := range channels {
		fmt.Fprintf(&b, "%d. %s\n", i+1, html.EscapeString(ch.ButtonText))
		fmt.Fprintf(&b, "   🔗 %s\n", html.EscapeString(ch.Link))
		fmt.Fprintf(&b, "   🆔 %d\n\n", ch.ChatID)
	}
	return b.String()
}

func removeChannelPrompt(channels []store.Channel) string {
	var b strings.Builder
	b.WriteString("📢 Отправь номер канала для удаления:\n\n")
	for i, ch := range channels {
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, ch.ButtonText, ch.ChatID)
	}
	return b.String()
}

func broadcastReport(res broadcast.Result) string {
	title := "✅ Рассылка завершена!"
	if res.Canceled {
		title = "⛔ Рассылка остановлена!"
	}
	return fmt.Sprintf("%s\n\n✅ Успешно: %d\n❌ Ошибок: %d\n🚫 Заблокировали бота: %d",
		title, res.Success, res.Failed, res.Blocked)
}
