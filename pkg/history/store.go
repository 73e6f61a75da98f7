package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/ganymede/pkg/prompt"
)

// DefaultBusyTimeout is how long SQLite waits for locks before failing.
const DefaultBusyTimeout = 5 * time.Second

// Config configures the transcript store.
type Config struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: DefaultBusyTimeout.
	BusyTimeout time.Duration
}

// Store persists completed conversation turns in SQLite.
//
// The transcript is an audit trail alongside the in-browser history; the
// request path never reads from it, so a store failure degrades to a log line
// rather than a failed turn.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the transcript database at cfg.Path.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("transcript db path cannot be empty")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: cfg.Path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize transcript schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AppendTurns records turns for a session in one transaction.
func (s *Store) AppendTurns(ctx context.Context, sessionID string, turns []prompt.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for i, turn := range turns {
		// Millisecond offsets keep insertion order stable under one clock tick.
		_, err := tx.ExecContext(ctx,
			"INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)",
			sessionID, turn.Role, turn.Content, now+int64(i),
		)
		if err != nil {
			return fmt.Errorf("failed to append turn: %w", err)
		}
	}

	return tx.Commit()
}

// RecentTurns returns up to limit most recent turns for a session, oldest
// first. limit <= 0 returns the full transcript.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]prompt.Turn, error) {
	query := `
		SELECT role, content FROM turns
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`
	args := []any{sessionID}
	if limit > 0 {
		query = `
			SELECT role, content FROM (
				SELECT id, role, content, created_at FROM turns
				WHERE session_id = ?
				ORDER BY created_at DESC, id DESC
				LIMIT ?
			) ORDER BY created_at ASC, id ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []prompt.Turn
	for rows.Next() {
		var turn prompt.Turn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

// PruneBefore deletes turns recorded before cutoff and returns how many rows
// were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM turns WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune turns: %w", err)
	}
	return res.RowsAffected()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
