package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("queue: schema version mismatch")

// ErrNoItemAvailable signals an empty pending queue to the worker poll loop.
var ErrNoItemAvailable = errors.New("queue: no item available")

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the queue database and applies the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("queue: ensure directory: %w", err)
	}
	// Pragmas go in the DSN so every pooled connection picks them up;
	// dispatch settles items from concurrent goroutines and each one
	// needs the busy timeout.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("queue: open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("queue: check schema_version table: %w", err)
	}
	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("queue: begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("queue: create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("queue: record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("queue: read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// EnqueueRequest describes a submission that may target several models at
// once; one item is created per model.
type EnqueueRequest struct {
	Prompt  string
	Models  []string
	Refs    []string
	Aspect  string
	Quality string
}

// Enqueue inserts one pending item per requested model and returns them in
// insertion order.
func (s *Store) Enqueue(ctx context.Context, req EnqueueRequest) ([]Item, error) {
	if req.Prompt == "" || len(req.Models) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if err := domain.ValidateRefs(req.Refs); err != nil {
		return nil, err
	}
	aspect := req.Aspect
	if aspect == "" {
		aspect = "1:1"
	}
	quality := req.Quality
	if quality == "" {
		quality = "medium"
	}
	refsJSON, err := json.Marshal(orEmpty(req.Refs))
	if err != nil {
		return nil, fmt.Errorf("queue: encode refs: %w", err)
	}

	now := s.now().UTC()
	items := make([]Item, 0, len(req.Models))
	for i, model := range req.Models {
		if model == "" {
			return nil, domain.ErrInvalidRequest
		}
		// Preserve submission order across models under coarse clocks.
		createdAt := now.Add(time.Duration(i) * time.Microsecond)
		item := Item{
			ID:        uuid.NewString(),
			Prompt:    req.Prompt,
			Model:     model,
			Refs:      orEmpty(req.Refs),
			Aspect:    aspect,
			Quality:   quality,
			Status:    StatusPending,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO queue_items (id, prompt, model, refs_json, aspect, quality, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.Prompt, item.Model, string(refsJSON), item.Aspect, item.Quality,
			string(item.Status), timestamp(item.CreatedAt), timestamp(item.UpdatedAt),
		); err != nil {
			return nil, fmt.Errorf("queue: insert item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Claim transitions the oldest pending item to processing and returns it.
func (s *Store) Claim(ctx context.Context) (*Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT id FROM queue_items WHERE status = ? ORDER BY created_at LIMIT 1`,
		string(StatusPending),
	)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoItemAvailable
		}
		return nil, fmt.Errorf("queue: select pending: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, updated_at = ? WHERE id = ?`,
		string(StatusProcessing), timestamp(s.now().UTC()), id,
	); err != nil {
		return nil, fmt.Errorf("queue: mark processing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("queue: commit claim: %w", err)
	}
	return s.GetByID(ctx, id)
}

// MarkDone records a successful generation.
func (s *Store) MarkDone(ctx context.Context, id, resultFile string) error {
	return s.settle(ctx, id, StatusDone, resultFile, "")
}

// MarkError records a failed generation without touching any other item.
func (s *Store) MarkError(ctx context.Context, id, message string) error {
	return s.settle(ctx, id, StatusError, "", message)
}

func (s *Store) settle(ctx context.Context, id string, status Status, resultFile, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, result_file = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), nullable(resultFile), nullable(message), timestamp(s.now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("queue: update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("queue: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID loads one item.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, prompt, model, refs_json, aspect, quality, status, result_file, error, created_at, updated_at
         FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// List returns all items, newest first.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, model, refs_json, aspect, quality, status, result_file, error, created_at, updated_at
         FROM queue_items ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("queue: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// StatusCounts aggregates items per status.
func (s *Store) StatusCounts(ctx context.Context) (Counts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return Counts{}, fmt.Errorf("queue: count items: %w", err)
	}
	defer rows.Close()

	var counts Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("queue: scan count: %w", err)
		}
		switch Status(status) {
		case StatusPending:
			counts.Pending = n
		case StatusProcessing:
			counts.Processing = n
		case StatusDone:
			counts.Done = n
		case StatusError:
			counts.Error = n
		}
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var refsJSON, status, createdAt, updatedAt string
	var resultFile, errMsg sql.NullString
	if err := row.Scan(&item.ID, &item.Prompt, &item.Model, &refsJSON, &item.Aspect, &item.Quality,
		&status, &resultFile, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.ResultFile = resultFile.String
	item.Error = errMsg.String
	if err := json.Unmarshal([]byte(refsJSON), &item.Refs); err != nil {
		item.Refs = []string{}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		item.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		item.UpdatedAt = t
	}
	return &item, nil
}

func timestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmpty(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}
