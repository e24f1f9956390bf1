package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/extract"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
)

// Store is the bookmark persistence used by the handlers.
type Store interface {
	Ping(ctx context.Context) error
	Bookmarks(ctx context.Context) ([]domain.Bookmark, error)
	Bookmark(ctx context.Context, id int64) (domain.Bookmark, error)
	CreateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, id int64) error
	Queue(ctx context.Context) ([]int64, error)
}

// Queue is the processor surface exposed to producers.
type Queue interface {
	AddJob(ctx context.Context, id int64) error
	RetryJob(ctx context.Context, id int64) error
	Busy() bool
}

// Model reports and drives the local model state.
type Model interface {
	Availability(ctx context.Context) model.Availability
	ImageAvailability(ctx context.Context) model.Availability
	Download(ctx context.Context, onProgress model.ProgressFunc) error
	Progress() (int, bool)
}

// Extractor fetches readable text for pages saved without content.
type Extractor interface {
	Fetch(ctx context.Context, url string) (extract.Page, error)
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Store     Store
	Queue     Queue
	Model     Model
	Extractor Extractor       // nil disables content extraction
	Metrics   http.Handler    // nil disables /metrics
	BaseCtx   context.Context // parent of background work started by handlers

	AllowedHosts   []string      // Host headers allowed to reach the API
	AllowedCIDRS   []string      // IPs allowed to reach the API and probes
	TrustProxy     bool          // resolve client IPs from proxy headers
	CORSOrigins    []string      // allowed CORS origins, empty = any
	CreateBurst    int           // create endpoint burst per client
	CreatePerMin   int           // create endpoint refill per minute per client
	KickTrigger    chan struct{} // manual queue kick
	RequestTimeout time.Duration // per-request timeout
}
