package telegram

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"search-chatter/internal/admin"
	"search-chatter/internal/broadcast"
	"search-chatter/internal/store"
	"search-chatter/internal/subscription"
)

const adminID = int64(100)

type fakeSender struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
	nextID    int
	copyErrs  map[int64]error
	statuses  map[int64]string
	memberErr error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if cp, ok := c.(tgbotapi.CopyMessageConfig); ok {
		if err := f.copyErrs[cp.ChatID]; err != nil {
			return nil, err
		}
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	if f.memberErr != nil {
		return tgbotapi.ChatMember{}, f.memberErr
	}
	return tgbotapi.ChatMember{Status: f.statuses[cfg.ChatID]}, nil
}

// texts returns the text of every sent message and edit, in order.
func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type fakeAsker struct {
	answer    string
	questions []string
	resets    int
}

func (f *fakeAsker) Ask(_ context.Context, _ int64, q string) string {
	f.questions = append(f.questions, q)
	return f.answer
}
func (f *fakeAsker) Reset(int64) { f.resets++ }
func (f *fakeAsker) Stats(int64) (int, int) { return 3, 6 }

type fakeGate struct {
	res subscription.Result
	err error
}

func (g fakeGate) Check(context.Context, int64) (subscription.Result, error) { return g.res, g.err }

type testEnv struct {
	bot    *Bot
	sender *fakeSender
	asker  *fakeAsker
	store  *store.FileStore
}

func newTestEnv(t *testing.T, gate Gatekeeper) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFileStore(filepath.Join(dir, "channels.json"), filepath.Join(dir, "users.json"), filepath.Join(dir, "stats.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	fs := &fakeSender{copyErrs: map[int64]error{}}
	asker := &fakeAsker{answer: "ответ"}
	if gate == nil {
		gate = fakeGate{res: subscription.Result{Subscribed: true}}
	}
	b := newBot(fs, Deps{
		Assistant:  asker,
		Gate:       gate,
		Admin:      admin.NewService(st, nil, []int64{adminID}, nil),
		Dispatcher: broadcast.NewDispatcher(st, 0, nil),
		Users:      st,
		Stats:      st,
	})
	return &testEnv{bot: b, sender: fs, asker: asker, store: st}
}

func textMsg(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID, FirstName: "Иван"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
}

func commandMsg(userID int64, text string) *tgbotapi.Message {
	m := textMsg(userID, text)
	cmd := strings.SplitN(text, " ", 2)[0]
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return m
}

func TestHandleQuestion_PlaceholderAnswerAndSplit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.asker.answer = strings.Repeat("я", maxMessageRunes+10)

	env.bot.handleIncomingMessage(context.Background(), textMsg(1, "Какая погода?"))

	texts := env.sender.texts()
	if len(texts) != 3 {
		t.Fatalf("want placeholder and 2 chunks, got %d messages", len(texts))
	}
	if texts[0] != searchingText {
		t.Fatalf("first message must be the placeholder, got %q", texts[0])
	}
	if len([]rune(texts[1])) != maxMessageRunes || len([]rune(texts[2])) != 10 {
		t.Fatalf("unexpected chunk sizes: %d, %d", len([]rune(texts[1])), len([]rune(texts[2])))
	}
	if len(env.asker.questions) != 1 || env.asker.questions[0] != "Какая погода?" {
		t.Fatalf("unexpected questions: %v", env.asker.questions)
	}

	var deleted bool
	for _, r := range env.sender.requests {
		if d, ok := r.(tgbotapi.DeleteMessageConfig); ok && d.MessageID == 1 {
			deleted = true
		}
	}
	if !deleted {
		t.Fatalf("placeholder was not deleted")
	}

	users, _ := env.store.ListUsers(context.Background())
	if len(users) != 1 || users[0] != 1 {
		t.Fatalf("user not registered: %v", users)
	}
	activity, _ := env.store.Activity(context.Background())
	if _, ok := activity[1]; !ok {
		t.Fatalf("activity not recorded")
	}
}

func TestHandleQuestion_GateBlocks(t *testing.T) {
	missing := []store.Channel{{Link: "https://t.me/news", ChatID: -1, ButtonText: "Новости"}}
	env := newTestEnv(t, fakeGate{res: subscription.Result{Missing: missing}})

	env.bot.handleIncomingMessage(context.Background(), textMsg(1, "вопрос"))

	if len(env.asker.questions) != 0 {
		t.Fatalf("question must not reach the assistant")
	}
	if len(env.sender.sent) != 1 {
		t.Fatalf("want 1 message, got %d", len(env.sender.sent))
	}
	m := env.sender.sent[0].(tgbotapi.MessageConfig)
	if m.Text != gateText {
		t.Fatalf("unexpected gate text: %q", m.Text)
	}
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 2 {
		t.Fatalf("want channel button and check button, got %+v", m.ReplyMarkup)
	}
	if kb.InlineKeyboard[0][0].URL == nil || *kb.InlineKeyboard[0][0].URL != "https://t.me/news" {
		t.Fatalf("channel button has wrong link")
	}
	if kb.InlineKeyboard[1][0].CallbackData == nil || *kb.InlineKeyboard[1][0].CallbackData != checkSubData {
		t.Fatalf("check button has wrong data")
	}
}

func TestHandleQuestion_GateErrorLetsThrough(t *testing.T) {
	env := newTestEnv(t, fakeGate{err: errors.New("disk")})
	env.bot.handleIncomingMessage(context.Background(), textMsg(1, "вопрос"))
	if len(env.asker.questions) != 1 {
		t.Fatalf("question must reach the assistant when the channel list is unreadable")
	}
}

func TestUserCommands(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.bot.handleIncomingMessage(ctx, commandMsg(1, "/start"))
	if !strings.Contains(env.sender.last(), "Привет, Иван") {
		t.Fatalf("unexpected welcome: %q", env.sender.last())
	}

	env.bot.handleIncomingMessage(ctx, commandMsg(1, "/clear"))
	if env.asker.resets != 1 || env.sender.last() != "🗑 История очищена!" {
		t.Fatalf("clear not handled: resets=%d last=%q", env.asker.resets, env.sender.last())
	}

	env.bot.handleIncomingMessage(ctx, commandMsg(1, "/stats"))
	if !strings.Contains(env.sender.last(), "Сообщений: 3") || !strings.Contains(env.sender.last(), "В истории: 6") {
		t.Fatalf("unexpected stats: %q", env.sender.last())
	}
}

func TestAdminCommands_NonAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.bot.handleIncomingMessage(ctx, commandMsg(1, "/admin"))
	if env.sender.last() != "❌ У вас нет доступа к админ-панели" {
		t.Fatalf("unexpected reply: %q", env.sender.last())
	}
	before := len(env.sender.sent)
	for _, cmd := range []string{"/broadcast", "/add_channel", "/list_channels", "/remove_channel", "/detailed_stats"} {
		env.bot.handleIncomingMessage(ctx, commandMsg(1, cmd))
	}
	if len(env.sender.sent) != before {
		t.Fatalf("admin commands must be silent for regular users")
	}
	if env.bot.state(1) != stateNone {
		t.Fatalf("regular user must not enter admin dialog")
	}
}

func TestAdminPanel(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bot.handleIncomingMessage(context.Background(), commandMsg(adminID, "/admin"))
	m := env.sender.sent[0].(tgbotapi.MessageConfig)
	if m.ParseMode != tgbotapi.ModeHTML || !strings.Contains(m.Text, "АДМИН-ПАНЕЛЬ") || !strings.Contains(m.Text, "Всего пользователей: 1") {
		t.Fatalf("unexpected admin panel: %+v", m)
	}
}

func TestAddChannelFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/add_channel"))
	if env.bot.state(adminID) != stateAddChannel {
		t.Fatalf("admin must await channel data")
	}
	env.bot.handleIncomingMessage(ctx, textMsg(adminID, "https://t.me/x\nnot-a-number\nX"))
	if !strings.Contains(env.sender.last(), "ID канала должен быть числом") {
		t.Fatalf("unexpected reply: %q", env.sender.last())
	}
	if env.bot.state(adminID) != stateNone {
		t.Fatalf("state must reset after invalid input")
	}
	if list, _ := env.store.ListChannels(ctx); len(list) != 0 {
		t.Fatalf("invalid channel stored: %+v", list)
	}

	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/add_channel"))
	env.bot.handleIncomingMessage(ctx, textMsg(adminID, "https://t.me/x\n-1001\nX"))
	if !strings.HasPrefix(env.sender.last(), "✅ Канал добавлен!") {
		t.Fatalf("unexpected reply: %q", env.sender.last())
	}
	list, _ := env.store.ListChannels(ctx)
	if len(list) != 1 || list[0].ChatID != -1001 {
		t.Fatalf("channel not stored: %+v", list)
	}
	if len(env.asker.questions) != 0 {
		t.Fatalf("dialog input must not reach the assistant")
	}
}

func TestRemoveChannelFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	_ = env.store.AddChannel(ctx, store.Channel{Link: "https://t.me/a", ChatID: -1, ButtonText: "A"})
	_ = env.store.AddChannel(ctx, store.Channel{Link: "https://t.me/b", ChatID: -2, ButtonText: "B"})

	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/remove_channel"))
	env.bot.handleIncomingMessage(ctx, textMsg(adminID, "5"))
	if env.sender.last() != "❌ Канала с таким номером нет" {
		t.Fatalf("unexpected reply: %q", env.sender.last())
	}
	if list, _ := env.store.ListChannels(ctx); len(list) != 2 {
		t.Fatalf("out-of-range removal changed list: %+v", list)
	}

	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/remove_channel"))
	env.bot.handleIncomingMessage(ctx, textMsg(adminID, "2"))
	if env.sender.last() != "✅ Канал B удален!" {
		t.Fatalf("unexpected reply: %q", env.sender.last())
	}
	list, _ := env.store.ListChannels(ctx)
	if len(list) != 1 || list[0].ButtonText != "A" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestBroadcastFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		_ = env.store.AddUser(ctx, id)
	}
	env.sender.copyErrs[2] = errors.New("Forbidden: bot was blocked by the user")

	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/broadcast"))
	env.bot.handleIncomingMessage(ctx, textMsg(adminID, "Новость дня"))

	texts := env.sender.texts()
	if !strings.Contains(texts[len(texts)-2], "Начинаю рассылку для 4 пользователей") {
		t.Fatalf("unexpected status: %v", texts)
	}
	report := env.sender.last()
	if !strings.Contains(report, "Рассылка завершена") || !strings.Contains(report, "Успешно: 3") ||
		!strings.Contains(report, "Ошибок: 1") || !strings.Contains(report, "Заблокировали бота: 1") {
		t.Fatalf("unexpected report: %q", report)
	}
	if _, ok := env.sender.sent[len(env.sender.sent)-1].(tgbotapi.EditMessageTextConfig); !ok {
		t.Fatalf("report must edit the status message")
	}
	blocked, _ := env.store.Blocked(ctx)
	if len(blocked) != 1 || blocked[0] != 2 {
		t.Fatalf("blocked user not persisted: %v", blocked)
	}
	if len(env.asker.questions) != 0 {
		t.Fatalf("broadcast text must not reach the assistant")
	}
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/broadcast"))
	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/cancel"))
	if env.bot.state(adminID) != stateNone || env.sender.last() != "❌ Действие отменено" {
		t.Fatalf("cancel not handled: state=%v last=%q", env.bot.state(adminID), env.sender.last())
	}

	canceled := false
	env.bot.beginBroadcast(func() { canceled = true })
	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/cancel"))
	if !canceled {
		t.Fatalf("running broadcast not canceled")
	}
}

func TestCallbackCheckSub(t *testing.T) {
	ctx := context.Background()
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Data:    checkSubData,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 1}},
	}

	env := newTestEnv(t, fakeGate{res: subscription.Result{Missing: []store.Channel{{ChatID: -1}}}})
	env.bot.handleCallback(ctx, cb)
	alert, ok := env.sender.requests[0].(tgbotapi.CallbackConfig)
	if !ok || !alert.ShowAlert || alert.Text != notSubscribed {
		t.Fatalf("want alert for missing subscription, got %+v", env.sender.requests)
	}

	env = newTestEnv(t, nil)
	env.bot.handleCallback(ctx, cb)
	if env.sender.last() != subscribedText {
		t.Fatalf("unexpected reply: %q", env.sender.last())
	}
	if _, ok := env.sender.requests[0].(tgbotapi.DeleteMessageConfig); !ok {
		t.Fatalf("subscription prompt must be deleted")
	}
}

func TestMembershipChecker(t *testing.T) {
	fs := &fakeSender{statuses: map[int64]string{-1: "left"}}
	c := MembershipChecker{s: fs}
	status, err := c.MemberStatus(context.Background(), -1, 5)
	if err != nil || status != "left" {
		t.Fatalf("unexpected status %q err=%v", status, err)
	}
	fs.memberErr = errors.New("Bad Request: chat not found")
	if _, err := c.MemberStatus(context.Background(), -1, 5); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSplitMessage(t *testing.T) {
	if parts := splitMessage("short", 10); len(parts) != 1 || parts[0] != "short" {
		t.Fatalf("unexpected parts: %v", parts)
	}
	parts := splitMessage("абвгдеж", 3)
	if len(parts) != 3 || parts[0] != "абв" || parts[2] != "ж" {
		t.Fatalf("unexpected parts: %v", parts)
	}
}

func TestNotifyAdmins(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bot.NotifyAdmins("отчёт")
	if len(env.sender.sent) != 1 {
		t.Fatalf("want 1 message, got %d", len(env.sender.sent))
	}
	m := env.sender.sent[0].(tgbotapi.MessageConfig)
	if m.ChatID != adminID || m.Text != "отчёт" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestMarkupRepliesAreSentAsHTML(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.bot.handleIncomingMessage(ctx, commandMsg(1, "/help"))
	env.bot.handleIncomingMessage(ctx, commandMsg(1, "/stats"))
	env.bot.handleIncomingMessage(ctx, commandMsg(adminID, "/detailed_stats"))

	if len(env.sender.sent) != 3 {
		t.Fatalf("want 3 messages, got %d", len(env.sender.sent))
	}
	for _, c := range env.sender.sent {
		m := c.(tgbotapi.MessageConfig)
		if !strings.Contains(m.Text, "<b>") || m.ParseMode != tgbotapi.ModeHTML {
			t.Fatalf("markup reply must use HTML parse mode: %+v", m)
		}
	}
}
