package importer

import (
	"testing"
)

func TestMapItems(t *testing.T) {
	file := File{
		{Title: "Channels", URL: "https://go.dev/blog/channels", Content: "text", Tags: []string{"go", " ", "a", "b", "c"}},
		{URL: "https://example.com/no-title"},
		{Title: "no url"},
		{Screenshot: true, Image: "data:image/png;base64,AA=="},
		{Screenshot: true, Content: "recognized words"},
		{Screenshot: true},
	}

	bookmarks, skipped := MapItems(file)

	if len(bookmarks) != 4 {
		t.Fatalf("MapItems() returned %d bookmarks, want 4", len(bookmarks))
	}
	if len(skipped) != 2 || skipped[0] != 2 || skipped[1] != 5 {
		t.Errorf("skipped = %v, want [2 5]", skipped)
	}

	page := bookmarks[0]
	if page.Content() != "text" || page.IsScreenshot {
		t.Errorf("page bookmark = %+v", page)
	}
	if len(page.Tags) != 3 || page.Tags[0] != "go" || page.Tags[1] != "a" {
		t.Errorf("tags = %v, want [go a b]", page.Tags)
	}

	untitled := bookmarks[1]
	if untitled.Title != "example.com" {
		t.Errorf("untitled Title = %q, want host", untitled.Title)
	}
	if untitled.RawContent != nil {
		t.Error("item without content should have nil RawContent")
	}

	shot := bookmarks[2]
	if !shot.IsScreenshot || shot.Content() != "[Screenshot]" || shot.Title != "Screenshot" {
		t.Errorf("screenshot bookmark = %+v", shot)
	}

	ocr := bookmarks[3]
	if got := ocr.Content(); got != "[Screenshot]\n\nrecognized words" {
		t.Errorf("ocr content = %q", got)
	}
}

func TestMapItemsEmpty(t *testing.T) {
	bookmarks, skipped := MapItems(File{})
	if len(bookmarks) != 0 || len(skipped) != 0 {
		t.Errorf("MapItems(empty) = %v, %v", bookmarks, skipped)
	}
}
