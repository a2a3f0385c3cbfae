package broadcast

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"search-chatter/internal/store"
)

func newStore(t *testing.T) *store.FileStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewFileStore(filepath.Join(dir, "c.json"), filepath.Join(dir, "u.json"), filepath.Join(dir, "s.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func TestRun_CountsAndPersistsBlocked(t *testing.T) {
	s := newStore(t)
	recipients := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	var delivered []int64
	deliver := func(_ context.Context, id int64) error {
		switch id {
		case 4:
			return errors.New("Forbidden: bot was blocked by the user")
		case 8:
			return errors.New("Forbidden: user is deactivated")
		}
		delivered = append(delivered, id)
		return nil
	}

	res := NewDispatcher(s, 0, nil).Run(context.Background(), recipients, deliver)

	if res.Success != 8 || res.Failed != 2 || res.Blocked != 2 {
		t.Fatalf("want 8/2/2, got %+v", res)
	}
	if res.JobID == "" || res.Total != 10 || res.Canceled {
		t.Fatalf("unexpected result metadata: %+v", res)
	}
	if len(delivered) != 8 || delivered[0] != 1 || delivered[7] != 10 {
		t.Fatalf("unexpected delivery order: %v", delivered)
	}
	blocked, err := s.Blocked(context.Background())
	if err != nil {
		t.Fatalf("blocked: %v", err)
	}
	if len(blocked) != 2 || blocked[0] != 4 || blocked[1] != 8 {
		t.Fatalf("unexpected blocked list: %v", blocked)
	}
}

func TestRun_OtherFailuresNotBlocked(t *testing.T) {
	s := newStore(t)
	deliver := func(_ context.Context, id int64) error {
		if id == 2 {
			return errors.New("Bad Request: chat not found")
		}
		return nil
	}
	res := NewDispatcher(s, 0, nil).Run(context.Background(), []int64{1, 2, 3}, deliver)
	if res.Success != 2 || res.Failed != 1 || res.Blocked != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if blocked, _ := s.Blocked(context.Background()); len(blocked) != 0 {
		t.Fatalf("non-blocked failure persisted: %v", blocked)
	}
}

func TestRun_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sent := 0
	deliver := func(context.Context, int64) error {
		sent++
		if sent == 2 {
			cancel()
		}
		return nil
	}
	res := NewDispatcher(nil, 0, nil).Run(ctx, []int64{1, 2, 3, 4}, deliver)
	if !res.Canceled {
		t.Fatalf("expected canceled result: %+v", res)
	}
	if sent != 2 || res.Success != 2 {
		t.Fatalf("delivery continued after cancel: sent=%d res=%+v", sent, res)
	}
}

func TestRun_Delay(t *testing.T) {
	start := time.Now()
	NewDispatcher(nil, 10*time.Millisecond, nil).Run(context.Background(), []int64{1, 2, 3}, func(context.Context, int64) error { return nil })
	if time.Since(start) < 30*time.Millisecond {
		t.Fatalf("delay between sends not applied")
	}
}

func TestIsBlockedError(t *testing.T) {
	cases := map[string]bool{
		"Forbidden: bot was blocked by the user": true,
		"Forbidden: USER IS DEACTIVATED":         true,
		"Too Many Requests: retry after 5":       false,
	}
	for text, want := range cases {
		if got := IsBlockedError(errors.New(text)); got != want {
			t.Fatalf("%q: want %v, got %v", text, want, got)
		}
	}
	if IsBlockedError(nil) {
		t.Fatalf("nil error is not blocked")
	}
}

func TestRun_CancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sent := 0
	deliver := func(context.Context, int64) error {
		sent++
		cancel()
		return nil
	}
	res := NewDispatcher(nil, time.Hour, nil).Run(ctx, []int64{1, 2}, deliver)
	if !res.Canceled || sent != 1 || res.Success != 1 {
		t.Fatalf("pause must end on cancel: sent=%d res=%+v", sent, res)
	}
}
