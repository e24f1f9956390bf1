package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/extract"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
	"github.com/MrSnakeDoc/mindmark/internal/queue"
	"github.com/MrSnakeDoc/mindmark/internal/store"
	"github.com/MrSnakeDoc/mindmark/internal/store/memory"
)

// heldScheduler never runs passes, so the queue is observable as written.
type heldScheduler struct{}

func (heldScheduler) Go(func())                       {}
func (heldScheduler) AfterFunc(time.Duration, func()) {}

type fakeModel struct {
	text, image model.Availability
	downloads   atomic.Int32
}

func (m *fakeModel) Availability(context.Context) model.Availability      { return m.text }
func (m *fakeModel) ImageAvailability(context.Context) model.Availability { return m.image }
func (m *fakeModel) Progress() (int, bool)                                { return 0, false }

func (m *fakeModel) Download(context.Context, model.ProgressFunc) error {
	m.downloads.Add(1)
	return nil
}

type fakeExtractor struct {
	page extract.Page
	err  error
}

func (f fakeExtractor) Fetch(context.Context, string) (extract.Page, error) { return f.page, f.err }

type downStore struct {
	*store.Store
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

type env struct {
	st      *store.Store
	model   *fakeModel
	kick    chan struct{}
	handler http.Handler
}

func newEnv(t *testing.T, mutate ...func(*deps.Deps)) *env {
	t.Helper()
	log := logger.New("error", false)
	st := store.New(memory.New())
	m := &fakeModel{text: model.Available, image: model.Downloadable}
	kick := make(chan struct{}, 1)

	d := deps.Deps{
		Logger:       log,
		StartTime:    time.Now(),
		Version:      "test",
		Store:        st,
		Queue:        queue.NewProcessor(st, nil, queue.Options{Scheduler: heldScheduler{}}, log),
		Model:        m,
		BaseCtx:      context.Background(),
		KickTrigger:  kick,
		CreateBurst:  100,
		CreatePerMin: 100,
	}
	for _, fn := range mutate {
		fn(&d)
	}
	return &env{st: st, model: m, kick: kick, handler: httpserver.NewRouter(d)}
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestReadyz(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "available", decode[map[string]any](t, rec)["model"])

	down := newEnv(t, func(d *deps.Deps) { d.Store = downStore{Store: store.New(memory.New())} })
	rec = down.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["ready"])
}

func TestCreateBookmark(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/bookmarks",
		`{"title":"Pipelines","url":"https://go.dev/blog/pipelines","rawContent":"fan-in, fan-out"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	b := decode[domain.Bookmark](t, rec)
	assert.Equal(t, int64(1), b.ID)
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, domain.TypePending, b.Type)
	assert.Equal(t, "fan-in, fan-out", b.Content())
	assert.Nil(t, b.Summary)

	q, err := e.st.Queue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, q)
}

func TestCreateBookmarkExtractsContent(t *testing.T) {
	e := newEnv(t, func(d *deps.Deps) {
		d.Extractor = fakeExtractor{page: extract.Page{Title: "Go Concurrency Patterns", Text: "Do not communicate by sharing memory."}}
	})
	rec := e.do(t, http.MethodPost, "/api/bookmarks", `{"url":"https://go.dev/talks/concurrency"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	b := decode[domain.Bookmark](t, rec)
	assert.Equal(t, "Go Concurrency Patterns", b.Title)
	assert.Equal(t, "Do not communicate by sharing memory.", b.Content())
}

func TestCreateBookmarkExtractionFailureStillSaves(t *testing.T) {
	e := newEnv(t, func(d *deps.Deps) {
		d.Extractor = fakeExtractor{err: extract.ErrNoContent}
	})
	rec := e.do(t, http.MethodPost, "/api/bookmarks", `{"url":"https://example.com/empty"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	b := decode[domain.Bookmark](t, rec)
	assert.Equal(t, "example.com", b.Title)
	assert.False(t, b.HasContent())
}

func TestCreateScreenshot(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/bookmarks",
		`{"isScreenshot":true,"image":"data:image/png;base64,AAAA","rawContent":"Total: 42"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	b := decode[domain.Bookmark](t, rec)
	assert.True(t, b.IsScreenshot)
	assert.Equal(t, domain.TypeScreenshot, b.Type)
	assert.Equal(t, "[Screenshot]\n\nTotal: 42", b.Content())
}

func TestCreateBookmarkRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"url":`},
		{name: "page without url", body: `{"title":"nothing","rawContent":"text"}`},
		{name: "screenshot without image or text", body: `{"isScreenshot":true}`},
	}

	e := newEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/bookmarks", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetAndDeleteBookmark(t *testing.T) {
	e := newEnv(t)
	created, err := e.st.CreateBookmark(context.Background(), domain.Bookmark{Title: "a", URL: "https://a.example"})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/bookmarks/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[domain.Bookmark](t, rec).ID)

	rec = e.do(t, http.MethodGet, "/api/bookmarks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Bookmark](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/bookmarks/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/bookmarks/99", "").Code)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/bookmarks/1", "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/bookmarks/1", "").Code)
}

func TestListBookmarksFilters(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	for _, b := range []domain.Bookmark{
		{Title: "Go channels", URL: "https://go.example/channels", Status: domain.StatusComplete, IsStarred: true},
		{Title: "Notes", URL: "https://notes.example", Summary: domain.StringPtr("channels and select"), Status: domain.StatusPending},
		{Title: "Recipes", URL: "https://food.example", Status: domain.StatusFailed},
	} {
		_, err := e.st.CreateBookmark(ctx, b)
		require.NoError(t, err)
	}

	titles := func(path string) []string {
		rec := e.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []string
		for _, b := range decode[[]domain.Bookmark](t, rec) {
			out = append(out, b.Title)
		}
		return out
	}

	assert.Len(t, titles("/api/bookmarks?status=all"), 3)
	assert.Equal(t, []string{"Go channels", "Notes"}, titles("/api/bookmarks?q=channels"))
	assert.Equal(t, []string{"Notes"}, titles("/api/bookmarks?q=channels&status=pending"))
	assert.Equal(t, []string{"Go channels"}, titles("/api/bookmarks?starred=starred"))
	assert.Empty(t, titles("/api/bookmarks?q=haskell"))

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/bookmarks?status=nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/bookmarks?read=maybe", "").Code)
}

func TestRetryBookmark(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	failed, err := e.st.CreateBookmark(ctx, domain.Bookmark{
		URL:        "https://failed.example",
		RawContent: domain.StringPtr("kept for retry"),
		Status:     domain.StatusFailed,
		Summary:    domain.StringPtr("Failed to generate summary"),
	})
	require.NoError(t, err)
	done, err := e.st.CreateBookmark(ctx, domain.Bookmark{URL: "https://done.example", Status: domain.StatusComplete})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/api/bookmarks/1/retry", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	b, err := e.st.Bookmark(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, queue.SummaryQueued, b.SummaryText())

	q, err := e.st.Queue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{failed.ID}, q)

	rec = e.do(t, http.MethodPost, "/api/bookmarks/2/retry", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "save the page again")
	assert.Equal(t, int64(2), done.ID)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/bookmarks/42/retry", "").Code)
}

func TestQueueEndpoints(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, err := e.st.CreateBookmark(ctx, domain.Bookmark{URL: "https://q.example", RawContent: domain.StringPtr("x")})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":[],"busy":false}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/queue/7", "").Code)
	assert.Equal(t, http.StatusAccepted, e.do(t, http.MethodPost, "/api/queue/1", "").Code)
	// Enqueueing twice keeps a single entry.
	assert.Equal(t, http.StatusAccepted, e.do(t, http.MethodPost, "/api/queue/1", "").Code)

	rec = e.do(t, http.MethodGet, "/api/queue", "")
	assert.JSONEq(t, `{"queue":[1],"busy":false}`, rec.Body.String())
}

func TestKick(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusAccepted, e.do(t, http.MethodPost, "/api/queue/kick", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, e.do(t, http.MethodPost, "/api/queue/kick", "").Code)

	<-e.kick
	assert.Equal(t, http.StatusAccepted, e.do(t, http.MethodPost, "/api/queue/kick", "").Code)
}

func TestModelEndpoints(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/model/availability", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"available","image":"downloadable","downloading":false}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/model/download", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Eventually(t, func() bool { return e.model.downloads.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMetricsRoute(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newEnv(t).do(t, http.MethodGet, "/metrics", "").Code)

	e := newEnv(t, func(d *deps.Deps) {
		d.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("mindmark_up 1\n"))
		})
	})
	rec := e.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mindmark_up")
}

func TestAccessRestrictions(t *testing.T) {
	// httptest requests come from 192.0.2.1.
	e := newEnv(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/bookmarks", "").Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", "").Code)

	hosts := newEnv(t, func(d *deps.Deps) {
		d.AllowedHosts = []string{"mindmark.local"}
	})
	// httptest requests carry Host example.com.
	assert.Equal(t, http.StatusForbidden, hosts.do(t, http.MethodGet, "/api/queue", "").Code)
}
