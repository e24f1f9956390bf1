package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/queue"
	"github.com/MrSnakeDoc/mindmark/internal/sources/importer"
)

// maxCreateBody leaves room for full-page screenshot data URIs.
const maxCreateBody = 32 << 20

type retryResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, err.Error())
			return
		}

		bookmarks, err := d.Store.Bookmarks(r.Context())
		if err != nil {
			writeStoreError(w, d.Logger, err)
			return
		}
		if !filter.Empty() {
			bookmarks = domain.Search(bookmarks, filter)
		}
		writeJSON(w, d.Logger, http.StatusOK, bookmarks)
	}
}

// parseFilter reads q, status, type, tag, read and starred. "all" and
// empty values leave a criterion unset.
func parseFilter(r *http.Request) (domain.Filter, error) {
	q := r.URL.Query()
	param := func(name string) string {
		v := strings.TrimSpace(q.Get(name))
		if strings.EqualFold(v, "all") {
			return ""
		}
		return v
	}

	f := domain.Filter{
		Query: param("q"),
		Type:  param("type"),
		Tag:   param("tag"),
	}

	switch s := domain.Status(strings.ToLower(param("status"))); s {
	case "", domain.StatusPending, domain.StatusDownloading, domain.StatusComplete, domain.StatusFailed:
		f.Status = s
	default:
		return f, fmt.Errorf("invalid status %q", s)
	}

	var err error
	if f.Read, err = boolParam(param("read"), "read", "unread"); err != nil {
		return f, err
	}
	if f.Starred, err = boolParam(param("starred"), "starred", "unstarred"); err != nil {
		return f, err
	}
	return f, nil
}

func boolParam(v, yes, no string) (*bool, error) {
	switch strings.ToLower(v) {
	case "":
		return nil, nil
	case "true", "1", yes:
		b := true
		return &b, nil
	case "false", "0", no:
		b := false
		return &b, nil
	default:
		return nil, fmt.Errorf("invalid %s filter %q", yes, v)
	}
}

func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookmarkID(r)
		if !ok {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid bookmark id")
			return
		}
		b, err := d.Store.Bookmark(r.Context(), id)
		if err != nil {
			writeStoreError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, b)
	}
}

// CreateBookmark saves a page or screenshot as a pending bookmark and
// queues it. Pages sent without text are extracted from their url first.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item importer.Item
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&item); err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid request body")
			return
		}

		b, ok := importer.MapItem(item)
		if !ok {
			writeError(w, d.Logger, http.StatusBadRequest, "a page needs a valid url and a screenshot needs an image or text")
			return
		}
		if d.Extractor != nil && !b.IsScreenshot && !b.HasContent() {
			if err := importer.FillContent(r.Context(), d.Extractor, &b); err != nil {
				d.Logger.Warn("failed to extract page content",
					logger.String("url", b.URL),
					logger.Error(err))
			}
		}

		created, err := d.Store.CreateBookmark(r.Context(), b)
		if err != nil {
			writeStoreError(w, d.Logger, err)
			return
		}
		if err := d.Queue.AddJob(r.Context(), created.ID); err != nil {
			// The reconciler picks up pending bookmarks that never got queued.
			d.Logger.Warn("failed to enqueue new bookmark",
				logger.Int64("bookmark_id", created.ID),
				logger.Error(err))
		}

		d.Logger.Info("bookmark saved",
			logger.Int64("bookmark_id", created.ID),
			logger.String("bookmark_type", created.Kind()))
		writeJSON(w, d.Logger, http.StatusCreated, created)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookmarkID(r)
		if !ok {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid bookmark id")
			return
		}
		if err := d.Store.DeleteBookmark(r.Context(), id); err != nil {
			writeStoreError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RetryBookmark re-queues a failed bookmark. 409 once its content is gone.
func RetryBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookmarkID(r)
		if !ok {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid bookmark id")
			return
		}

		err := d.Queue.RetryJob(r.Context(), id)
		switch {
		case errors.Is(err, queue.ErrNoContentForRetry):
			writeError(w, d.Logger, http.StatusConflict, err.Error())
		case err != nil:
			writeStoreError(w, d.Logger, err)
		default:
			writeJSON(w, d.Logger, http.StatusAccepted, retryResponse{ID: id, Status: "queued"})
		}
	}
}
