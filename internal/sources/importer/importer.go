// Package importer seeds the bookmark store from a YAML file of saved items.
package importer

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/extract"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
)

type Store interface {
	Bookmarks(ctx context.Context) ([]domain.Bookmark, error)
	CreateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error)
}

type Enqueuer interface {
	AddJob(ctx context.Context, id int64) error
}

// Fetcher extracts page text for items imported without content.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (extract.Page, error)
}

// Result summarizes one import run.
type Result struct {
	Created    int
	Duplicates int
	Skipped    int
}

type Importer struct {
	loader  *Loader
	store   Store
	queue   Enqueuer
	fetcher Fetcher
	log     logger.Logger
}

// New creates an importer. fetcher may be nil, in which case items
// without content are imported as-is and fail with no content.
func New(loader *Loader, st Store, queue Enqueuer, fetcher Fetcher, log logger.Logger) *Importer {
	return &Importer{
		loader:  loader,
		store:   st,
		queue:   queue,
		fetcher: fetcher,
		log:     log,
	}
}

// Run imports every item whose URL is not stored yet and enqueues it.
// Screenshots without a URL are always imported.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	file, err := im.loader.Load()
	if err != nil {
		return Result{}, err
	}

	items, skipped := MapItems(file)
	res := Result{Skipped: len(skipped)}
	for _, i := range skipped {
		im.log.Warn("skipping import item without url or image", logger.Int("index", i))
	}

	existing, err := im.store.Bookmarks(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, b := range existing {
		if b.URL != "" {
			seen[b.URL] = true
		}
	}

	for _, b := range items {
		if b.URL != "" && seen[b.URL] {
			res.Duplicates++
			continue
		}
		if im.fetcher != nil && !b.IsScreenshot && !b.HasContent() {
			if err := FillContent(ctx, im.fetcher, &b); err != nil {
				im.log.Warn("failed to extract page content", logger.String("url", b.URL), logger.Error(err))
			}
		}

		created, err := im.store.CreateBookmark(ctx, b)
		if err != nil {
			return res, fmt.Errorf("failed to create bookmark for %q: %w", b.Title, err)
		}
		if err := im.queue.AddJob(ctx, created.ID); err != nil {
			return res, err
		}

		if b.URL != "" {
			seen[b.URL] = true
		}
		res.Created++
	}

	im.log.Info("import finished",
		logger.Int("created", res.Created),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("skipped", res.Skipped))
	return res, nil
}

// FillContent fetches the page text for b. A title that is only the url
// host is replaced by the page title.
func FillContent(ctx context.Context, f Fetcher, b *domain.Bookmark) error {
	page, err := f.Fetch(ctx, b.URL)
	if err != nil {
		return err
	}
	b.RawContent = &page.Text
	if page.Title != "" && (b.Title == "" || b.Title == urlHost(b.URL)) {
		b.Title = page.Title
	}
	return nil
}
