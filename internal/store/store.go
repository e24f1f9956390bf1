// Package store persists bookmarks and the pending-job queue on top of a
// plain key-value backend. Each collection lives under a single key and
// every mutation rewrites it whole.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
)

// ErrNotFound is returned when a bookmark id is absent from the collection.
var ErrNotFound = errors.New("bookmark not found")

// Backend is the durable key-value storage underneath the Store.
// Get reports ok=false for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Store is the bookmark collection and job queue.
//
// Read-modify-write cycles are serialized in process. Writers in other
// processes sharing the backend still win or lose as last writer.
type Store struct {
	kv  Backend
	mu  sync.Mutex
	now func() time.Time
}

// New creates a Store over kv.
func New(kv Backend) *Store {
	return &Store{
		kv:  kv,
		now: time.Now,
	}
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Bookmarks returns the bookmark collection in insertion order.
func (s *Store) Bookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	return s.loadBookmarks(ctx)
}

// Bookmark returns one bookmark by id.
func (s *Store) Bookmark(ctx context.Context, id int64) (domain.Bookmark, error) {
	bookmarks, err := s.loadBookmarks(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	i := indexOf(bookmarks, id)
	if i < 0 {
		return domain.Bookmark{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return bookmarks[i], nil
}

// CreateBookmark assigns the next id, fills producer defaults and appends b.
func (s *Store) CreateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, err := s.loadBookmarks(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	last, err := s.loadLastID(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	for _, existing := range bookmarks {
		if existing.ID > last {
			last = existing.ID
		}
	}

	b.ID = last + 1
	if b.Timestamp == 0 {
		b.Timestamp = s.now().UnixMilli()
	}
	if b.Status == "" {
		b.Status = domain.StatusPending
	}
	if b.Type == "" {
		b.Type = domain.TypePending
		if b.IsScreenshot {
			b.Type = domain.TypeScreenshot
		}
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}

	bookmarks = append(bookmarks, b)
	if err := s.saveBookmarks(ctx, bookmarks); err != nil {
		return domain.Bookmark{}, err
	}
	if err := s.kv.Set(ctx, KeyLastBookmarkID, []byte(strconv.FormatInt(b.ID, 10))); err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to save last bookmark id: %w", err)
	}
	return b, nil
}

// UpdateBookmark applies mutate to the bookmark with id and persists the collection.
func (s *Store) UpdateBookmark(ctx context.Context, id int64, mutate func(*domain.Bookmark)) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, err := s.loadBookmarks(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	i := indexOf(bookmarks, id)
	if i < 0 {
		return domain.Bookmark{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	mutate(&bookmarks[i])
	bookmarks[i].ID = id
	if len(bookmarks[i].Tags) > domain.MaxTags {
		bookmarks[i].Tags = bookmarks[i].Tags[:domain.MaxTags]
	}

	if err := s.saveBookmarks(ctx, bookmarks); err != nil {
		return domain.Bookmark{}, err
	}
	return bookmarks[i], nil
}

// DeleteBookmark removes a bookmark and drops its id from the queue.
func (s *Store) DeleteBookmark(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, err := s.loadBookmarks(ctx)
	if err != nil {
		return err
	}
	i := indexOf(bookmarks, id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err := s.saveBookmarks(ctx, slices.Delete(bookmarks, i, i+1)); err != nil {
		return err
	}

	_, err = s.removeFromQueue(ctx, id)
	return err
}

// Queue returns pending job ids in FIFO order.
func (s *Store) Queue(ctx context.Context) ([]int64, error) {
	return s.loadQueue(ctx)
}

// AddToQueue appends id unless it is already queued.
func (s *Store) AddToQueue(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.loadQueue(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(queue, id) {
		return nil
	}
	return s.saveQueue(ctx, append(queue, id))
}

// RemoveFromQueue drops id and returns the remaining queue.
func (s *Store) RemoveFromQueue(ctx context.Context, id int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeFromQueue(ctx, id)
}

func (s *Store) removeFromQueue(ctx context.Context, id int64) ([]int64, error) {
	queue, err := s.loadQueue(ctx)
	if err != nil {
		return nil, err
	}
	remaining := slices.DeleteFunc(queue, func(q int64) bool { return q == id })
	if err := s.saveQueue(ctx, remaining); err != nil {
		return nil, err
	}
	return remaining, nil
}

// AnalyticsClientID returns the installation id, generating and persisting
// a random UUID on first use.
func (s *Store) AnalyticsClientID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.kv.Get(ctx, KeyAnalyticsClientID)
	if err != nil {
		return "", fmt.Errorf("failed to load analytics client id: %w", err)
	}
	if ok && len(data) > 0 {
		return string(data), nil
	}

	id := uuid.NewString()
	if err := s.kv.Set(ctx, KeyAnalyticsClientID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to save analytics client id: %w", err)
	}
	return id, nil
}

func (s *Store) loadBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	bookmarks := []domain.Bookmark{}
	if err := s.loadJSON(ctx, KeyBookmarks, &bookmarks); err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (s *Store) saveBookmarks(ctx context.Context, bookmarks []domain.Bookmark) error {
	if err := s.saveJSON(ctx, KeyBookmarks, bookmarks); err != nil {
		return fmt.Errorf("failed to save bookmarks: %w", err)
	}
	return nil
}

func (s *Store) loadQueue(ctx context.Context) ([]int64, error) {
	queue := []int64{}
	if err := s.loadJSON(ctx, KeyQueue, &queue); err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	return queue, nil
}

func (s *Store) saveQueue(ctx context.Context, queue []int64) error {
	if queue == nil {
		queue = []int64{}
	}
	if err := s.saveJSON(ctx, KeyQueue, queue); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}

func (s *Store) loadLastID(ctx context.Context) (int64, error) {
	data, ok, err := s.kv.Get(ctx, KeyLastBookmarkID)
	if err != nil {
		return 0, fmt.Errorf("failed to load last bookmark id: %w", err)
	}
	if !ok || len(data) == 0 {
		return 0, nil
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid last bookmark id %q: %w", data, err)
	}
	return id, nil
}

func (s *Store) loadJSON(ctx context.Context, key string, v any) error {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *Store) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, data)
}

func indexOf(bookmarks []domain.Bookmark, id int64) int {
	return slices.IndexFunc(bookmarks, func(b domain.Bookmark) bool { return b.ID == id })
}
