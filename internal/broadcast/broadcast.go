// Package broadcast delivers an admin message to every known user, one at a time.
package broadcast

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var blockedMarkers = []string{
	"bot was blocked",
	"blocked by the user",
	"user is deactivated",
}

// DeliverFunc sends one copy of the broadcast to recipient.
type DeliverFunc func(ctx context.Context, recipient int64) error

// BlockedRecorder persists users that blocked the bot.
type BlockedRecorder interface {
	AddBlocked(ctx context.Context, userID int64) error
}

type Result struct {
	JobID    string
	Total    int
	Success  int
	Failed   int
	Blocked  int
	Canceled bool
}

type Dispatcher struct {
	blocked BlockedRecorder
	delay   time.Duration
	logger  *zap.Logger
}

func NewDispatcher(blocked BlockedRecorder, delay time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{blocked: blocked, delay: delay, logger: logger}
}

// IsBlockedError reports whether err means the recipient blocked the bot or
// deleted their account.
func IsBlockedError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, m := range blockedMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Run delivers sequentially, pausing after every successful send. A failure for
// one recipient never stops the batch; cancelling ctx does, between recipients.
func (d *Dispatcher) Run(ctx context.Context, recipients []int64, deliver DeliverFunc) Result {
	res := Result{JobID: uuid.NewString(), Total: len(recipients)}
	log := d.logger.With(zap.String("job_id", res.JobID))
	log.Info("broadcast started", zap.Int("recipients", len(recipients)))

	for _, id := range recipients {
		if ctx.Err() != nil {
			res.Canceled = true
			break
		}
		if err := deliver(ctx, id); err != nil {
			res.Failed++
			if IsBlockedError(err) {
				res.Blocked++
				if d.blocked != nil {
					if perr := d.blocked.AddBlocked(ctx, id); perr != nil {
						log.Warn("failed to persist blocked user", zap.Int64("user_id", id), zap.Error(perr))
					}
				}
			}
			log.Debug("delivery failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		res.Success++
		if d.delay > 0 && !sleep(ctx, d.delay) {
			res.Canceled = true
			break
		}
	}

	log.Info("broadcast finished",
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
		zap.Int("blocked", res.Blocked),
		zap.Bool("canceled", res.Canceled))
	return res
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
