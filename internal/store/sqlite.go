// Package store persists inbound messages in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"inboxd/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// SQLiteStore implements domain.MessageStore on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.MessageStore = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at dbPath and applies the
// schema. Opening an existing database is a no-op on the schema.
func Open(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: serializes writers, which SQLite wants anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Debug("message store ready", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		message_id  TEXT PRIMARY KEY,
		from_msisdn TEXT NOT NULL,
		to_msisdn   TEXT NOT NULL,
		ts          TEXT NOT NULL,
		text        TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// tsLayout is RFC 3339 with a fixed-width fraction. The width matters:
// trimmed fractions would make the stored text sort differently from
// chronological order ("10:00:00.5Z" < "10:00:00Z" lexically).
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamps are stored as UTC fixed-width RFC 3339 text so that
// lexicographic ordering and range comparisons in SQL agree with
// chronological order.
func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Insert persists msg with a server-assigned CreatedAt. The uniqueness check
// and the write are one atomic statement; a second insert with the same
// message_id leaves the first row untouched and reports OutcomeDuplicate.
func (s *SQLiteStore) Insert(ctx context.Context, msg domain.Message) (domain.Outcome, error) {
	var text sql.NullString
	if msg.Text != nil {
		text = sql.NullString{String: *msg.Text, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (message_id, from_msisdn, to_msisdn, ts, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.From, msg.To, formatTS(msg.TS), text, formatTS(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert message %s: %w", msg.MessageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("insert message %s: %w", msg.MessageID, err)
	}
	if n == 0 {
		return domain.OutcomeDuplicate, nil
	}
	return domain.OutcomeCreated, nil
}

// List returns one page of messages matching f plus the total count of the
// filtered set (independent of pagination). Filters combine conjunctively;
// ordering is ts asc with message_id asc as tie-break, so repeated calls over
// unchanged data return identical slices.
func (s *SQLiteStore) List(ctx context.Context, f domain.Filter) ([]domain.Message, int64, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	where := "FROM messages WHERE 1=1"
	var args []any
	if f.From != "" {
		where += " AND from_msisdn = ?"
		args = append(args, f.From)
	}
	if f.Since != nil {
		where += " AND ts >= ?"
		args = append(args, formatTS(*f.Since))
	}
	if f.Q != "" {
		where += " AND text LIKE ?"
		args = append(args, "%"+f.Q+"%")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT message_id, from_msisdn, to_msisdn, ts, text, created_at "+where+
			" ORDER BY ts ASC, message_id ASC LIMIT ? OFFSET ?",
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.Message, 0, limit)
	for rows.Next() {
		var (
			m                 domain.Message
			text              sql.NullString
			tsRaw, createdRaw string
		)
		if err := rows.Scan(&m.MessageID, &m.From, &m.To, &tsRaw, &text, &createdRaw); err != nil {
			return nil, 0, err
		}
		if m.TS, err = parseTS(tsRaw); err != nil {
			return nil, 0, fmt.Errorf("corrupt ts for %s: %w", m.MessageID, err)
		}
		if m.CreatedAt, err = parseTS(createdRaw); err != nil {
			return nil, 0, fmt.Errorf("corrupt created_at for %s: %w", m.MessageID, err)
		}
		if text.Valid {
			m.Text = &text.String
		}
		msgs = append(msgs, m)
	}
	return msgs, total, rows.Err()
}

// Stats aggregates the whole table: totals, distinct senders, first/last
// message timestamp, and the ten busiest senders.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		st          domain.Stats
		first, last sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT from_msisdn), MIN(ts), MAX(ts) FROM messages`,
	).Scan(&st.TotalMessages, &st.SendersCount, &first, &last)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	if first.Valid {
		t, err := parseTS(first.String)
		if err != nil {
			return domain.Stats{}, err
		}
		st.FirstTS = &t
	}
	if last.Valid {
		t, err := parseTS(last.String)
		if err != nil {
			return domain.Stats{}, err
		}
		st.LastTS = &t
	}

	// Sender tie-break is alphabetical so the output is reproducible.
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_msisdn, COUNT(*) AS count
		 FROM messages
		 GROUP BY from_msisdn
		 ORDER BY count DESC, from_msisdn ASC
		 LIMIT 10`,
	)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("per-sender stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc domain.SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return domain.Stats{}, err
		}
		st.PerSender = append(st.PerSender, sc)
	}
	return st, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
