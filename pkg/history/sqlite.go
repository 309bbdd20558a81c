package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// SQLiteStore keeps runs and their messages in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens, and creates if needed, the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		threads INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		thread INTEGER NOT NULL,
		position INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_run ON messages(run_id, thread, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WriteHistory implements Store. Writing a name twice replaces the earlier run.
func (s *SQLiteStore) WriteHistory(ctx context.Context, name string, logs [][]llm.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		"DELETE FROM messages WHERE run_id IN (SELECT id FROM runs WHERE name = ?)",
		"DELETE FROM runs WHERE name = ?",
	} {
		if _, err := tx.ExecContext(ctx, query, name); err != nil {
			return fmt.Errorf("failed to replace run %s: %w", name, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO runs (name, threads, created_at) VALUES (?, ?, ?)",
		name, len(logs), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", name, err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (run_id, thread, position, role, content) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for thread, log := range logs {
		for pos, msg := range log {
			if _, err := stmt.ExecContext(ctx, runID, thread, pos, string(msg.Role), msg.Content); err != nil {
				return fmt.Errorf("failed to insert message %d of thread %d: %w", pos, thread, err)
			}
		}
	}

	return tx.Commit()
}

// ReadHistory implements Store.
func (s *SQLiteStore) ReadHistory(ctx context.Context, name string) ([][]llm.Message, error) {
	var runID int64
	var threads int
	err := s.db.QueryRowContext(ctx, "SELECT id, threads FROM runs WHERE name = ?", name).Scan(&runID, &threads)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT thread, role, content FROM messages WHERE run_id = ? ORDER BY thread, position", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([][]llm.Message, threads)
	for rows.Next() {
		var thread int
		var msg llm.Message
		var role string
		if err := rows.Scan(&thread, &role, &msg.Content); err != nil {
			return nil, err
		}
		if thread < 0 || thread >= threads {
			return nil, fmt.Errorf("message of run %s refers to thread %d of %d", name, thread, threads)
		}
		msg.Role = llm.Role(role)
		logs[thread] = append(logs[thread], msg)
	}
	return logs, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
