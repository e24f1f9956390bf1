package importer

import (
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
)

// screenshotPrefix is how producers mark OCR text captured from a screenshot.
const screenshotPrefix = "[Screenshot]"

// MapItems converts import items to new pending bookmarks. Items without a
// usable URL or image are skipped and reported by index.
func MapItems(file File) ([]domain.Bookmark, []int) {
	bookmarks := make([]domain.Bookmark, 0, len(file))
	var skipped []int

	for i, item := range file {
		b, ok := MapItem(item)
		if !ok {
			skipped = append(skipped, i)
			continue
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, skipped
}

// MapItem turns an item into a new pending bookmark. It reports false for
// screenshots with neither image nor text and for pages without a valid url.
func MapItem(item Item) (domain.Bookmark, bool) {
	title := strings.TrimSpace(item.Title)
	rawURL := strings.TrimSpace(item.URL)
	content := strings.TrimSpace(item.Content)

	if item.Screenshot {
		if item.Image == "" && content == "" {
			return domain.Bookmark{}, false
		}
		if !strings.HasPrefix(content, screenshotPrefix) {
			content = strings.TrimSpace(screenshotPrefix + "\n\n" + content)
		}
		if title == "" {
			title = "Screenshot"
		}
		return domain.Bookmark{
			Title:        title,
			URL:          rawURL,
			Image:        item.Image,
			IsScreenshot: true,
			RawContent:   &content,
			IsStarred:    item.Starred,
			Tags:         limitTags(item.Tags),
		}, true
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return domain.Bookmark{}, false
	}
	if title == "" {
		title = u.Host
	}

	b := domain.Bookmark{
		Title:     title,
		URL:       rawURL,
		Image:     item.Image,
		IsStarred: item.Starred,
		Tags:      limitTags(item.Tags),
	}
	if content != "" {
		b.RawContent = &content
	}
	return b, true
}

func urlHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func limitTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" && len(out) < domain.MaxTags {
			out = append(out, t)
		}
	}
	return out
}
