// Package extract pulls the readable text out of a web page for bookmarks
// saved without content.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/MrSnakeDoc/mindmark/internal/utils"
)

const maxPageBytes = 10 << 20

// ErrNoContent is returned when a page yields no readable text.
var ErrNoContent = errors.New("page has no readable content")

// Page is the readable part of a document.
type Page struct {
	Title string
	Text  string
}

type Extractor struct {
	client    *http.Client
	userAgent string
}

// New creates an extractor. A nil client gets a 15s timeout.
func New(client *http.Client, userAgent string) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Extractor{client: client, userAgent: userAgent}
}

// Fetch downloads pageURL and extracts its article text.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) (Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Page{}, fmt.Errorf("invalid page url %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, err
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch %s: %w", u.Host, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("failed to fetch %s: status %d", u.Host, resp.StatusCode)
	}
	return parse(io.LimitReader(resp.Body, maxPageBytes), u)
}

// FromHTML extracts article text from an already captured document.
func FromHTML(html, pageURL string) (Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	return parse(strings.NewReader(html), u)
}

func parse(r io.Reader, u *url.URL) (Page, error) {
	article, err := readability.FromReader(r, u)
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse page: %w", err)
	}

	p := Page{
		Title: strings.TrimSpace(article.Title),
		Text:  strings.TrimSpace(article.TextContent),
	}
	if p.Text == "" {
		return p, ErrNoContent
	}
	return p, nil
}
