// Package storetest holds the behaviour every store.Store implementation must
// satisfy.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"search-chatter/internal/store"
)

func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("Channels", func(t *testing.T) { testChannels(t, open(t)) })
	t.Run("RemoveOutOfRange", func(t *testing.T) { testRemoveOutOfRange(t, open(t)) })
	t.Run("Activity", func(t *testing.T) { testActivity(t, open(t)) })
	t.Run("Blocked", func(t *testing.T) { testBlocked(t, open(t)) })
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("want no users, got %v", users)
	}
	for _, id := range []int64{30, 10, 20, 10} {
		if err := s.AddUser(ctx, id); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}
	users, err = s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 3 || users[0] != 10 || users[1] != 20 || users[2] != 30 {
		t.Fatalf("unexpected users: %v", users)
	}
}

func testChannels(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := store.Channel{Link: "https://t.me/a", ChatID: -1001, ButtonText: "A"}
	b := store.Channel{Link: "https://t.me/b", ChatID: -1002, ButtonText: "B"}
	c := store.Channel{Link: "https://t.me/c", ChatID: -1003, ButtonText: "C"}
	for _, ch := range []store.Channel{a, b, c} {
		if err := s.AddChannel(ctx, ch); err != nil {
			t.Fatalf("add %s: %v", ch.ButtonText, err)
		}
	}
	removed, err := s.RemoveChannelAt(ctx, 2)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != b {
		t.Fatalf("removed wrong channel: %+v", removed)
	}
	got, err := s.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Fatalf("unexpected channels: %+v", got)
	}
}

func testRemoveOutOfRange(t *testing.T, s store.Store) {
	ctx := context.Background()
	ch := store.Channel{Link: "https://t.me/a", ChatID: -1001, ButtonText: "A"}
	if err := s.AddChannel(ctx, ch); err != nil {
		t.Fatalf("add: %v", err)
	}
	for _, pos := range []int{0, 2, -1} {
		if _, err := s.RemoveChannelAt(ctx, pos); !errors.Is(err, store.ErrChannelIndex) {
			t.Fatalf("pos %d: want ErrChannelIndex, got %v", pos, err)
		}
	}
	got, err := s.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0] != ch {
		t.Fatalf("list changed: %+v", got)
	}
}

func testActivity(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)
	if err := s.TouchActivity(ctx, 1, first); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := s.TouchActivity(ctx, 2, first); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := s.TouchActivity(ctx, 1, second); err != nil {
		t.Fatalf("touch again: %v", err)
	}
	act, err := s.Activity(ctx)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(act) != 2 {
		t.Fatalf("want 2 entries, got %d", len(act))
	}
	if !act[1].Equal(second) || !act[2].Equal(first) {
		t.Fatalf("unexpected activity: %v", act)
	}
}

func testBlocked(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, id := range []int64{5, 6, 5} {
		if err := s.AddBlocked(ctx, id); err != nil {
			t.Fatalf("block %d: %v", id, err)
		}
	}
	blocked, err := s.Blocked(ctx)
	if err != nil {
		t.Fatalf("blocked: %v", err)
	}
	if len(blocked) != 2 {
		t.Fatalf("want 2 blocked, got %v", blocked)
	}
	seen := map[int64]bool{}
	for _, id := range blocked {
		seen[id] = true
	}
	if !seen[5] || !seen[6] {
		t.Fatalf("unexpected blocked: %v", blocked)
	}
}
