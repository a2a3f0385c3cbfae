// Package subscription decides whether a user has joined every mandatory channel.
package subscription

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"search-chatter/internal/store"
)

// Statuses reported by Telegram for users that are not in the chat.
const (
	StatusLeft   = "left"
	StatusKicked = "kicked"
)

// MembershipChecker returns the member status of userID in chatID.
type MembershipChecker interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

type Result struct {
	Subscribed bool
	Missing    []store.Channel
}

type Gate struct {
	channels store.ChannelStore
	checker  MembershipChecker
	logger   *zap.Logger
}

func NewGate(channels store.ChannelStore, checker MembershipChecker, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{channels: channels, checker: checker, logger: logger}
}

// Check queries every configured channel. A failed membership query counts as
// not subscribed. The error is only set when the channel list cannot be read.
func (g *Gate) Check(ctx context.Context, userID int64) (Result, error) {
	channels, err := g.channels.ListChannels(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load channels: %w", err)
	}

	var missing []store.Channel
	for _, ch := range channels {
		status, err := g.checker.MemberStatus(ctx, ch.ChatID, userID)
		if err != nil {
			g.logger.Warn("membership query failed",
				zap.Int64("user_id", userID),
				zap.Int64("chat_id", ch.ChatID),
				zap.Error(err))
			missing = append(missing, ch)
			continue
		}
		if status == StatusLeft || status == StatusKicked {
			missing = append(missing, ch)
		}
	}
	return Result{Subscribed: len(missing) == 0, Missing: missing}, nil
}
