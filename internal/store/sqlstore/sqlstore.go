// Package sqlstore implements store.Store on top of database/sql for the
// sqlite (modernc.org/sqlite) and postgres (lib/pq) drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"search-chatter/internal/store"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ store.Store = (*Store)(nil)

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if dialect != SQLite && dialect != Postgres {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == SQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	channelID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == Postgres {
		channelID = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id ` + channelID + `,
			link TEXT NOT NULL,
			chat_id BIGINT NOT NULL,
			button_text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activity (
			user_id BIGINT PRIMARY KEY,
			last_seen BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS blocked (
			user_id BIGINT PRIMARY KEY
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	return err
}

func (s *Store) AddUser(ctx context.Context, userID int64) error {
	if err := s.exec(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT id FROM users ORDER BY id`)
}

func (s *Store) ListChannels(ctx context.Context) ([]store.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT link, chat_id, button_text FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var out []store.Channel
	for rows.Next() {
		var ch store.Channel
		if err := rows.Scan(&ch.Link, &ch.ChatID, &ch.ButtonText); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) AddChannel(ctx context.Context, ch store.Channel) error {
	err := s.exec(ctx, `INSERT INTO channels (link, chat_id, button_text) VALUES (?, ?, ?)`, ch.Link, ch.ChatID, ch.ButtonText)
	if err != nil {
		return fmt.Errorf("failed to add channel: %w", err)
	}
	return nil
}

func (s *Store) RemoveChannelAt(ctx context.Context, pos int) (store.Channel, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Channel{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id, link, chat_id, button_text FROM channels ORDER BY id`)
	if err != nil {
		return store.Channel{}, fmt.Errorf("failed to list channels: %w", err)
	}
	var (
		ids      []int64
		channels []store.Channel
	)
	for rows.Next() {
		var id int64
		var ch store.Channel
		if err := rows.Scan(&id, &ch.Link, &ch.ChatID, &ch.ButtonText); err != nil {
			rows.Close()
			return store.Channel{}, fmt.Errorf("failed to scan channel: %w", err)
		}
		ids = append(ids, id)
		channels = append(channels, ch)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.Channel{}, err
	}

	if pos < 1 || pos > len(ids) {
		return store.Channel{}, store.ErrChannelIndex
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM channels WHERE id = ?`), ids[pos-1]); err != nil {
		return store.Channel{}, fmt.Errorf("failed to delete channel: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return store.Channel{}, fmt.Errorf("failed to commit: %w", err)
	}
	return channels[pos-1], nil
}

func (s *Store) TouchActivity(ctx context.Context, userID int64, at time.Time) error {
	err := s.exec(ctx, `INSERT INTO activity (user_id, last_seen) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET last_seen = excluded.last_seen`, userID, at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to touch activity: %w", err)
	}
	return nil
}

func (s *Store) Activity(ctx context.Context) (map[int64]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, last_seen FROM activity`)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]time.Time)
	for rows.Next() {
		var id, ns int64
		if err := rows.Scan(&id, &ns); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out[id] = time.Unix(0, ns)
	}
	return out, rows.Err()
}

func (s *Store) AddBlocked(ctx context.Context, userID int64) error {
	if err := s.exec(ctx, `INSERT INTO blocked (user_id) VALUES (?) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("failed to add blocked user: %w", err)
	}
	return nil
}

func (s *Store) Blocked(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT user_id FROM blocked ORDER BY user_id`)
}

func (s *Store) queryIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
