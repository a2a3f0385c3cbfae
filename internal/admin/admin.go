// Package admin holds the operations behind the admin console: mandatory
// channel management and the statistics overview.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"search-chatter/internal/analytics"
	"search-chatter/internal/storage"
	"search-chatter/internal/store"
)

var (
	ErrTooFewLines = errors.New("channel data needs link, chat id and button text")
	ErrBadLink     = errors.New("channel link must start with http")
	ErrBadChatID   = errors.New("channel chat id must be an integer")
)

// ParseChannel reads a channel from three lines: invite link, numeric chat id
// and button text. Extra lines are ignored.
func ParseChannel(text string) (store.Channel, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 3 {
		return store.Channel{}, ErrTooFewLines
	}
	link := strings.TrimSpace(lines[0])
	rawID := strings.TrimSpace(lines[1])
	button := strings.TrimSpace(lines[2])

	if !strings.HasPrefix(link, "http") {
		return store.Channel{}, ErrBadLink
	}
	chatID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return store.Channel{}, fmt.Errorf("%w: %q", ErrBadChatID, rawID)
	}
	return store.Channel{Link: link, ChatID: chatID, ButtonText: button}, nil
}

// DialogCounter reports how many users currently hold conversation history.
type DialogCounter interface {
	ActiveDialogs() int
}

type Service struct {
	store   store.Store
	dialogs DialogCounter
	admins  map[int64]struct{}
	logger  *zap.Logger
}

func NewService(s store.Store, dialogs DialogCounter, adminIDs []int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Service{store: s, dialogs: dialogs, admins: admins, logger: logger}
}

func (s *Service) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}

// Admins returns the configured admin ids in no particular order.
func (s *Service) Admins() []int64 {
	out := make([]int64, 0, len(s.admins))
	for id := range s.admins {
		out = append(out, id)
	}
	return out
}

// AddChannel parses text and appends the channel. Invalid input leaves the
// list unchanged.
func (s *Service) AddChannel(ctx context.Context, text string) (store.Channel, error) {
	ch, err := ParseChannel(text)
	if err != nil {
		return store.Channel{}, err
	}
	if err := s.store.AddChannel(ctx, ch); err != nil {
		return store.Channel{}, fmt.Errorf("save channel: %w", err)
	}
	s.logger.Info("channel added", zap.Int64("chat_id", ch.ChatID), zap.String("button", ch.ButtonText))
	return ch, nil
}

// RemoveChannel deletes the channel at 1-based position pos.
func (s *Service) RemoveChannel(ctx context.Context, pos int) (store.Channel, error) {
	ch, err := s.store.RemoveChannelAt(ctx, pos)
	if err != nil {
		return store.Channel{}, err
	}
	s.logger.Info("channel removed", zap.Int64("chat_id", ch.ChatID), zap.Int("position", pos))
	return ch, nil
}

func (s *Service) Channels(ctx context.Context) ([]store.Channel, error) {
	return s.store.ListChannels(ctx)
}

func (s *Service) Recipients(ctx context.Context) ([]int64, error) {
	return s.store.ListUsers(ctx)
}

// Overview gathers the current statistics snapshot.
func (s *Service) Overview(ctx context.Context, now time.Time) (analytics.Snapshot, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("list users: %w", err)
	}
	activity, err := s.store.Activity(ctx)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("load activity: %w", err)
	}
	blocked, err := s.store.Blocked(ctx)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("load blocked: %w", err)
	}
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("list channels: %w", err)
	}
	dialogs := 0
	if s.dialogs != nil {
		dialogs = s.dialogs.ActiveDialogs()
	}
	return analytics.Compute(users, activity, blocked, len(channels), dialogs, now), nil
}

// InteractionSource reads back the interaction log.
type InteractionSource interface {
	LoadInteractions() ([]storage.Event, error)
}

// DailyReport renders the statistics snapshot and, when a log is available,
// the digest of questions asked on now's UTC day.
func (s *Service) DailyReport(ctx context.Context, now time.Time, interactions InteractionSource) (string, error) {
	snap, err := s.Overview(ctx, now)
	if err != nil {
		return "", err
	}
	var daily *analytics.DailyStats
	if interactions != nil {
		events, err := interactions.LoadInteractions()
		if err != nil {
			s.logger.Warn("failed to load interaction log", zap.Error(err))
		} else {
			daily = analytics.AnalyzeDailyLogs(events, now.UTC())
		}
	}
	return analytics.Report(snap, daily), nil
}
