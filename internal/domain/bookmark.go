package domain

// Status is the summarization lifecycle state of a bookmark.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
)

// Placeholder types assigned by producers before the model labels an item.
const (
	TypePending    = "Pending"
	TypeScreenshot = "Screenshot"
	TypeArticle    = "Article"
)

// MaxTags is the upper bound on tags stored per bookmark.
const MaxTags = 3

// Bookmark is one saved page, screenshot or post plus its AI-derived metadata.
// JSON names match the layout persisted by the browser extension.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the store, monotonically increasing.
	ID int64 `json:"id"`

	// Timestamp is the creation time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// ─────────────────────────────
	// Captured content
	// ─────────────────────────────

	Title string `json:"title"`
	URL   string `json:"url"`

	// RawContent is the extracted page text or OCR text.
	// It is kept while the bookmark is pending and nulled on completion.
	RawContent *string `json:"rawContent"`

	// Image is an optional data URI or URL (the screenshot itself for screenshots).
	Image string `json:"image,omitempty"`

	IsScreenshot bool `json:"isScreenshot,omitempty"`

	// ─────────────────────────────
	// Summarization output
	// ─────────────────────────────

	Status  Status   `json:"status"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags"`
	Summary *string  `json:"summary"`

	// ─────────────────────────────
	// Reader state (UI owned)
	// ─────────────────────────────

	IsRead    bool   `json:"isRead"`
	ReadAt    *int64 `json:"readAt"`
	IsStarred bool   `json:"isStarred"`
}

// HasContent reports whether there is raw content left to summarize.
func (b *Bookmark) HasContent() bool {
	return b.RawContent != nil && *b.RawContent != ""
}

// Content returns the raw content or an empty string.
func (b *Bookmark) Content() string {
	if b.RawContent == nil {
		return ""
	}
	return *b.RawContent
}

// SummaryText returns the summary or an empty string.
func (b *Bookmark) SummaryText() string {
	if b.Summary == nil {
		return ""
	}
	return *b.Summary
}

// Kind is the coarse label used in telemetry events.
func (b *Bookmark) Kind() string {
	if b.IsScreenshot {
		return "screenshot"
	}
	if b.Type != "" {
		return b.Type
	}
	return "page"
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
