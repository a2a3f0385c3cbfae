// Package store persists the bot's known users, mandatory channels and
// activity statistics. Components depend on the narrow capability interfaces;
// cmd/bot picks the implementation.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrChannelIndex is returned when a 1-based channel position is outside the
// current list.
var ErrChannelIndex = errors.New("channel index out of range")

// Channel is a mandatory subscription requirement.
type Channel struct {
	Link       string `json:"link"`
	ChatID     int64  `json:"chat_id"`
	ButtonText string `json:"button_text"`
}

type UserStore interface {
	AddUser(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context) ([]int64, error)
}

type ChannelStore interface {
	ListChannels(ctx context.Context) ([]Channel, error)
	AddChannel(ctx context.Context, ch Channel) error
	// RemoveChannelAt removes the channel at 1-based position pos.
	RemoveChannelAt(ctx context.Context, pos int) (Channel, error)
}

type StatsStore interface {
	TouchActivity(ctx context.Context, userID int64, at time.Time) error
	Activity(ctx context.Context) (map[int64]time.Time, error)
	AddBlocked(ctx context.Context, userID int64) error
	Blocked(ctx context.Context) ([]int64, error)
}

type Store interface {
	UserStore
	ChannelStore
	StatsStore
	Close() error
}
