// Package history provides a SQLite journal of completed exchanges.
// The journal is optional: front-ends open it only when a path is configured,
// and the adapter itself never touches it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/comigor/wrestlingai/internal/aiclient"
	"github.com/comigor/wrestlingai/internal/logger"
)

// Store is a SQLite-backed exchange journal. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS exchanges (
        id TEXT PRIMARY KEY,
        prompt TEXT NOT NULL,
        model TEXT NOT NULL,
        content TEXT NOT NULL,
        prompt_tokens INTEGER NOT NULL DEFAULT 0,
        completion_tokens INTEGER NOT NULL DEFAULT 0,
        total_tokens INTEGER NOT NULL DEFAULT 0,
        created_at INTEGER NOT NULL
    );`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	logger.L.Debug("sqlite history DB initialized", "path", path)
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// FromResponse builds an Exchange for prompt and its completion.
func FromResponse(prompt string, r *aiclient.Response) Exchange {
	return Exchange{
		Prompt:           prompt,
		Model:            r.Model,
		Content:          r.Content,
		PromptTokens:     r.Usage.PromptTokens,
		CompletionTokens: r.Usage.CompletionTokens,
		TotalTokens:      r.Usage.TotalTokens,
	}
}

// Save records e, assigning an ID and timestamp when they are unset, and returns the stored row.
func (s *Store) Save(ctx context.Context, e Exchange) (Exchange, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, prompt, model, content, prompt_tokens, completion_tokens, total_tokens, created_at)
         VALUES (?,?,?,?,?,?,?,?);`,
		e.ID, e.Prompt, e.Model, e.Content, e.PromptTokens, e.CompletionTokens, e.TotalTokens, e.CreatedAt.UnixNano())
	if err != nil {
		return Exchange{}, fmt.Errorf("history: insert: %w", err)
	}
	return e, nil
}

// List returns up to limit exchanges, newest first. A non-positive limit returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, model, content, prompt_tokens, completion_tokens, total_tokens, created_at
         FROM exchanges ORDER BY created_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var (
			e       Exchange
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Prompt, &e.Model, &e.Content, &e.PromptTokens, &e.CompletionTokens, &e.TotalTokens, &created); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
