// Package sqlite provides a persistent answer cache backed by SQLite.
// Useful for long-lived deployments that answer repeat questions against a
// small set of documents and want cache hits to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/storage/cachekey"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
)

// Ensure AnswerStore implements the interface.
var _ driven.AnswerStore = (*AnswerStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS answers (
	key        TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	answer     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_answers_document ON answers(document_id);
`

// AnswerStore is a SQLite-backed implementation of driven.AnswerStore.
type AnswerStore struct {
	db   *sql.DB
	path string
}

// NewAnswerStore opens (or creates) the cache database under dataDir.
// If dataDir is empty, defaults to ~/.hackrx/data/answers.db.
func NewAnswerStore(dataDir string) (*AnswerStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".hackrx", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "answers.db")

	// WAL mode for concurrent readers alongside the single writer.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &AnswerStore{db: db, path: dbPath}, nil
}

// Get returns the cached answer or domain.ErrNotFound.
func (s *AnswerStore) Get(ctx context.Context, documentID, question string) (string, error) {
	key := cachekey.Derive(documentID, question)

	var answer string
	err := s.db.QueryRowContext(ctx, "SELECT answer FROM answers WHERE key = ?", key).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query answer: %w", err)
	}
	return answer, nil
}

// Put stores an answer. ON CONFLICT DO NOTHING keeps the first value for a
// key, matching the memory backend's first-write-wins semantics.
func (s *AnswerStore) Put(ctx context.Context, documentID, question, answer string) error {
	key := cachekey.Derive(documentID, question)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (key, document_id, answer, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, documentID, answer, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *AnswerStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *AnswerStore) Close() error {
	return s.db.Close()
}
