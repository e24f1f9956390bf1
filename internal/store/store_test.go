package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/store"
	"github.com/MrSnakeDoc/mindmark/internal/store/memory"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(memory.New())
}

func TestCreateBookmarkDefaults(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	b, err := s.CreateBookmark(ctx, domain.Bookmark{Title: "page", URL: "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), b.ID)
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, domain.TypePending, b.Type)
	assert.NotNil(t, b.Tags)
	assert.NotZero(t, b.Timestamp)

	shot, err := s.CreateBookmark(ctx, domain.Bookmark{IsScreenshot: true, Image: "data:image/png;base64,AA=="})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeScreenshot, shot.Type)
	assert.Equal(t, int64(2), shot.ID)
}

func TestIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first, err := s.CreateBookmark(ctx, domain.Bookmark{Title: "a"})
	require.NoError(t, err)
	second, err := s.CreateBookmark(ctx, domain.Bookmark{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBookmark(ctx, second.ID))

	third, err := s.CreateBookmark(ctx, domain.Bookmark{Title: "c"})
	require.NoError(t, err)
	assert.Greater(t, third.ID, second.ID, "deleted id must not be handed out again")
	assert.Greater(t, second.ID, first.ID)
}

func TestBookmarkNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Bookmark(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpdateBookmark(ctx, 42, func(*domain.Bookmark) {})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteBookmark(ctx, 42), store.ErrNotFound)
}

func TestUpdateBookmark(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	b, err := s.CreateBookmark(ctx, domain.Bookmark{Title: "a"})
	require.NoError(t, err)

	updated, err := s.UpdateBookmark(ctx, b.ID, func(bm *domain.Bookmark) {
		bm.ID = 999
		bm.Status = domain.StatusComplete
		bm.Tags = []string{"one", "two", "three", "four", "five"}
		bm.Summary = domain.StringPtr("done")
	})
	require.NoError(t, err)

	assert.Equal(t, b.ID, updated.ID, "mutate must not change the id")
	assert.Equal(t, []string{"one", "two", "three"}, updated.Tags)

	stored, err := s.Bookmark(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, stored.Status)
	assert.Equal(t, "done", stored.SummaryText())
	assert.Equal(t, "a", stored.Title, "fields not touched by mutate are kept")
}

func TestQueue(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	queue, err := s.Queue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	for _, id := range []int64{3, 1, 2, 1} {
		require.NoError(t, s.AddToQueue(ctx, id))
	}

	queue, err = s.Queue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, queue, "queue keeps FIFO order and ignores duplicates")

	remaining, err := s.RemoveFromQueue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, remaining)

	remaining, err = s.RemoveFromQueue(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, remaining, "removing an absent id is a no-op")
}

func TestDeleteBookmarkDropsQueueEntry(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	b, err := s.CreateBookmark(ctx, domain.Bookmark{Title: "a"})
	require.NoError(t, err)
	require.NoError(t, s.AddToQueue(ctx, b.ID))

	require.NoError(t, s.DeleteBookmark(ctx, b.ID))

	queue, err := s.Queue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	all, err := s.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConcurrentCreates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := newStore(t)

	const n = 20
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			b, err := s.CreateBookmark(ctx, domain.Bookmark{Title: "x"})
			if err != nil {
				ids <- 0
				return
			}
			ids <- b.ID
		}()
	}

	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		id := <-ids
		require.NotZero(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	all, err := s.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestAnalyticsClientIDStable(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	first, err := store.New(kv).AnalyticsClientID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err, "client id should be a UUID")

	again, err := store.New(kv).AnalyticsClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again, "client id survives a new Store over the same backend")
}
