package domain

// Job is a bookmark claimed from the queue, discriminated by kind.
// Exactly one of TextJob or ScreenshotJob implements it for a given bookmark.
type Job interface {
	BookmarkID() int64
	job()
}

// TextJob summarizes extracted page text.
type TextJob struct {
	ID      int64
	Title   string
	URL     string
	Content string
}

// ScreenshotJob summarizes a screenshot image, falling back to its OCR text.
type ScreenshotJob struct {
	ID      int64
	Image   string
	OCRText string
}

func (j TextJob) BookmarkID() int64       { return j.ID }
func (j ScreenshotJob) BookmarkID() int64 { return j.ID }

func (TextJob) job()       {}
func (ScreenshotJob) job() {}

// NewJob builds the job variant matching the bookmark's isScreenshot flag.
func NewJob(b *Bookmark) Job {
	if b.IsScreenshot {
		return ScreenshotJob{
			ID:      b.ID,
			Image:   b.Image,
			OCRText: b.Content(),
		}
	}
	return TextJob{
		ID:      b.ID,
		Title:   b.Title,
		URL:     b.URL,
		Content: b.Content(),
	}
}

// Method records which path produced a result.
type Method string

const (
	MethodText             Method = "text"
	MethodMultimodal       Method = "multimodal"
	MethodOCRFallback      Method = "ocr-fallback"
	MethodOCRFallbackEmpty Method = "ocr-fallback-empty"
)

// Result is the structured output of one summarization.
type Result struct {
	Type    string
	Tags    []string
	Summary string
	Method  Method
}
