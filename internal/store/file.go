package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// isoLayouts are accepted when reading activity timestamps. The last two cover
// zone-less ISO times written by earlier versions of the bot.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type statsDoc struct {
	LastActivity map[string]string `json:"last_activity"`
	Blocked      []string          `json:"blocked"`
}

// FileStore keeps each collection in its own JSON document. Every operation
// reads the whole document, mutates it and writes it back.
type FileStore struct {
	channelsPath string
	usersPath    string
	statsPath    string
	mu           sync.Mutex
}

func NewFileStore(channelsPath, usersPath, statsPath string) (*FileStore, error) {
	for _, p := range []string{channelsPath, usersPath, statsPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	return &FileStore{channelsPath: channelsPath, usersPath: usersPath, statsPath: statsPath}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) AddUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []int64
	if err := readJSON(s.usersPath, &users); err != nil {
		return err
	}
	for _, id := range users {
		if id == userID {
			return nil
		}
	}
	return writeJSON(s.usersPath, append(users, userID))
}

func (s *FileStore) ListUsers(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []int64
	if err := readJSON(s.usersPath, &users); err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (s *FileStore) ListChannels(_ context.Context) ([]Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var channels []Channel
	if err := readJSON(s.channelsPath, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func (s *FileStore) AddChannel(_ context.Context, ch Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var channels []Channel
	if err := readJSON(s.channelsPath, &channels); err != nil {
		return err
	}
	return writeJSON(s.channelsPath, append(channels, ch))
}

func (s *FileStore) RemoveChannelAt(_ context.Context, pos int) (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var channels []Channel
	if err := readJSON(s.channelsPath, &channels); err != nil {
		return Channel{}, err
	}
	if pos < 1 || pos > len(channels) {
		return Channel{}, ErrChannelIndex
	}
	removed := channels[pos-1]
	out := make([]Channel, 0, len(channels)-1)
	out = append(out, channels[:pos-1]...)
	out = append(out, channels[pos:]...)
	if err := writeJSON(s.channelsPath, out); err != nil {
		return Channel{}, err
	}
	return removed, nil
}

func (s *FileStore) TouchActivity(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadStatsUnlocked()
	if err != nil {
		return err
	}
	doc.LastActivity[strconv.FormatInt(userID, 10)] = at.Format(time.RFC3339Nano)
	return writeJSON(s.statsPath, doc)
}

// Activity returns the last activity of every user. Entries with unparseable
// ids or timestamps are skipped.
func (s *FileStore) Activity(_ context.Context) (map[int64]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadStatsUnlocked()
	if err != nil {
		return nil, err
	}
	out := make(map[int64]time.Time, len(doc.LastActivity))
	for k, v := range doc.LastActivity {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		at, ok := parseTime(v)
		if !ok {
			continue
		}
		out[id] = at
	}
	return out, nil
}

func (s *FileStore) AddBlocked(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadStatsUnlocked()
	if err != nil {
		return err
	}
	key := strconv.FormatInt(userID, 10)
	for _, b := range doc.Blocked {
		if b == key {
			return nil
		}
	}
	doc.Blocked = append(doc.Blocked, key)
	return writeJSON(s.statsPath, doc)
}

func (s *FileStore) Blocked(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadStatsUnlocked()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(doc.Blocked))
	for _, b := range doc.Blocked {
		id, err := strconv.ParseInt(b, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *FileStore) loadStatsUnlocked() (statsDoc, error) {
	var doc statsDoc
	if err := readJSON(s.statsPath, &doc); err != nil {
		return statsDoc{}, err
	}
	if doc.LastActivity == nil {
		doc.LastActivity = make(map[string]string)
	}
	if doc.Blocked == nil {
		doc.Blocked = []string{}
	}
	return doc, nil
}

func parseTime(v string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// readJSON leaves out untouched when the file is missing or empty.
func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp for %s: %w", path, err)
	}
	return nil
}
