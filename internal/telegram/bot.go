package telegram

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"search-chatter/internal/admin"
	"search-chatter/internal/broadcast"
	"search-chatter/internal/store"
	"search-chatter/internal/subscription"
)

const checkSubData = "check_sub"

type Asker interface {
	Ask(ctx context.Context, userID int64, question string) string
	Reset(userID int64)
	Stats(userID int64) (questions, turns int)
}

type Gatekeeper interface {
	Check(ctx context.Context, userID int64) (subscription.Result, error)
}

// dialogState is the single pending admin input a user is expected to send.
type dialogState int

const (
	stateNone dialogState = iota
	stateBroadcast
	stateAddChannel
	stateRemoveChannel
)

// Deps are the collaborators the bot routes updates to.
type Deps struct {
	Assistant  Asker
	Gate       Gatekeeper
	Admin      *admin.Service
	Dispatcher *broadcast.Dispatcher
	Users      store.UserStore
	Stats      store.StatsStore
	Logger     *zap.Logger
}

type Bot struct {
	api        *tgbotapi.BotAPI
	s          sender
	assistant  Asker
	gate       Gatekeeper
	admin      *admin.Service
	dispatcher *broadcast.Dispatcher
	users      store.UserStore
	stats      store.StatsStore
	logger     *zap.Logger
	now        func() time.Time

	mu              sync.Mutex
	states          map[int64]dialogState
	broadcastCancel context.CancelFunc

	wg sync.WaitGroup
}

func New(api *tgbotapi.BotAPI, deps Deps) *Bot {
	b := newBot(botAPISender{api: api}, deps)
	b.api = api
	return b
}

func newBot(s sender, deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		s:          s,
		assistant:  deps.Assistant,
		gate:       deps.Gate,
		admin:      deps.Admin,
		dispatcher: deps.Dispatcher,
		users:      deps.Users,
		stats:      deps.Stats,
		logger:     logger,
		now:        time.Now,
		states:     make(map[int64]dialogState),
	}
}

// Start polls for updates until ctx is cancelled. Every update runs on its own
// goroutine; Start returns after in-flight handlers finish.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("bot started", zap.String("username", b.api.Self.UserName))

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopping")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) state(userID int64) dialogState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[userID]
}

func (b *Bot) setState(userID int64, st dialogState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st == stateNone {
		delete(b.states, userID)
		return
	}
	b.states[userID] = st
}

// beginBroadcast registers cancel as the running broadcast. It fails when
// another broadcast is still in progress.
func (b *Bot) beginBroadcast(cancel context.CancelFunc) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broadcastCancel != nil {
		return false
	}
	b.broadcastCancel = cancel
	return true
}

func (b *Bot) endBroadcast() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcastCancel = nil
}

func (b *Bot) cancelBroadcast() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broadcastCancel == nil {
		return false
	}
	b.broadcastCancel()
	return true
}

// registerUser records the user and refreshes their last activity.
func (b *Bot) registerUser(ctx context.Context, userID int64) {
	if b.users != nil {
		if err := b.users.AddUser(ctx, userID); err != nil {
			b.logger.Warn("failed to save user", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	if b.stats != nil {
		if err := b.stats.TouchActivity(ctx, userID, b.now()); err != nil {
			b.logger.Warn("failed to update activity", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.admin != nil && b.admin.IsAdmin(userID)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendFormatted sends text containing HTML markup.
func (b *Bot) sendFormatted(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// NotifyAdmins sends text to every configured admin.
func (b *Bot) NotifyAdmins(text string) {
	if b.admin == nil {
		return
	}
	for _, id := range b.admin.Admins() {
		b.sendMessage(id, text)
	}
}
