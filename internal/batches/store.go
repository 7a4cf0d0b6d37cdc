// Package batches persists user-named image collections in a JSON file and
// implements the client/server merge used by batch sync.
package batches

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

const batchesFile = "batches.json"

// Store owns batches.json under the library root. All mutations rewrite the
// whole file; a mutex serializes concurrent handler access.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore builds a Store over <basePath>/batches.json.
func NewStore(basePath string) *Store {
	return &Store{path: filepath.Join(basePath, batchesFile), now: time.Now}
}

// List returns all batches, sorted by creation time.
func (s *Store) List(ctx context.Context) ([]domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Replace overwrites the stored batches wholesale.
func (s *Store) Replace(ctx context.Context, batches []domain.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(batches)
}

// Sync merges client batches over the stored ones by id: client entries win,
// server-only batches survive. The merged result is persisted and returned
// sorted by createdAt.
func (s *Store) Sync(ctx context.Context, client []domain.Batch) ([]domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// A corrupt server file falls back to the client list rather than
	// failing the sync.
	server, err := s.load()
	if err != nil {
		server = nil
	}
	merged := make(map[string]domain.Batch, len(server)+len(client))
	for _, b := range server {
		merged[b.ID] = b
	}
	for _, b := range client {
		merged[b.ID] = b
	}
	result := make([]domain.Batch, 0, len(merged))
	for _, b := range merged {
		result = append(result, b)
	}
	sortBatches(result)
	if err := s.save(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Create adds a new batch with a generated id.
func (s *Store) Create(ctx context.Context, name, color string) (*domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batches, err := s.load()
	if err != nil {
		return nil, err
	}
	batch := domain.Batch{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		Images:    []domain.BatchImage{},
		CreatedAt: s.now().UnixMilli(),
	}
	batches = append(batches, batch)
	if err := s.save(batches); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Get returns one batch by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batches, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range batches {
		if batches[i].ID == id {
			return &batches[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// AddImage appends a file to a batch. Adding a file twice keeps one entry.
func (s *Store) AddImage(ctx context.Context, id, file string) (*domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if file == "" {
		return nil, domain.ErrInvalidRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batches, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range batches {
		if batches[i].ID != id {
			continue
		}
		batches[i].Add(file, s.now().UnixMilli())
		if err := s.save(batches); err != nil {
			return nil, err
		}
		return &batches[i], nil
	}
	return nil, domain.ErrNotFound
}

func (s *Store) load() ([]domain.Batch, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Batch{}, nil
		}
		return nil, fmt.Errorf("batches: read: %w", err)
	}
	var batches []domain.Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("batches: decode: %w", err)
	}
	sortBatches(batches)
	return batches, nil
}

func (s *Store) save(batches []domain.Batch) error {
	if batches == nil {
		batches = []domain.Batch{}
	}
	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("batches: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("batches: write: %w", err)
	}
	return nil
}

func sortBatches(batches []domain.Batch) {
	sort.Slice(batches, func(i, j int) bool { return batches[i].CreatedAt < batches[j].CreatedAt })
}
