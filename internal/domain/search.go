package domain

import (
	"slices"
	"strings"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0
)

// Field weights: a hit in the title outranks the same hit in the summary.
const (
	weightTitle   = 1.0
	weightTag     = 0.8
	weightSummary = 0.5
	weightURL     = 0.4
)

// Filter narrows a bookmark listing. Zero fields match everything.
type Filter struct {
	Query   string
	Status  Status
	Type    string
	Tag     string
	Read    *bool
	Starred *bool
}

// Empty reports whether the filter matches every bookmark.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.Query) == "" &&
		f.Status == "" && f.Type == "" && f.Tag == "" &&
		f.Read == nil && f.Starred == nil
}

// Matches applies the non-query criteria.
func (f Filter) Matches(b *Bookmark) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Type != "" && !strings.EqualFold(b.Type, f.Type) {
		return false
	}
	if f.Tag != "" && !slices.ContainsFunc(b.Tags, func(t string) bool { return strings.EqualFold(t, f.Tag) }) {
		return false
	}
	if f.Read != nil && b.IsRead != *f.Read {
		return false
	}
	if f.Starred != nil && b.IsStarred != *f.Starred {
		return false
	}
	return true
}

// ScoreBookmark calculates the match score for a bookmark against a query
// over its title, tags, summary and url.
func ScoreBookmark(queryStr string, b *Bookmark) float64 {
	if b == nil {
		return 0.0
	}
	queryStr = strings.ToLower(strings.TrimSpace(queryStr))
	if queryStr == "" {
		return 0.0
	}

	best := weightTitle * scoreText(queryStr, b.Title)
	for _, tag := range b.Tags {
		best = max(best, weightTag*scoreText(queryStr, tag))
	}
	best = max(best, weightSummary*scoreText(queryStr, b.SummaryText()))
	best = max(best, weightURL*scoreText(queryStr, b.URL))
	return best
}

// scoreText scores a lowercased query against one field.
func scoreText(queryStr, text string) float64 {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0.0
	}

	if queryStr == text {
		return ScoreExactMatch
	}
	if strings.HasPrefix(text, queryStr) {
		return ScorePrefixMatch
	}
	if index := strings.Index(text, queryStr); index >= 0 {
		substringBonus := ScorePositionBonus * (1.0 - float64(index)/float64(len(text)))
		return ScoreSubstringMatch + substringBonus
	}

	// Every word present, in any order
	words := strings.Fields(queryStr)
	if len(words) > 1 && !slices.ContainsFunc(words, func(w string) bool { return !strings.Contains(text, w) }) {
		return ScoreFuzzyMatch
	}
	return 0.0
}

// Search returns the bookmarks that pass f. With a query, results are
// ranked by score, ties keeping the input order; without one the input
// order is kept.
func Search(bookmarks []Bookmark, f Filter) []Bookmark {
	type candidate struct {
		bookmark Bookmark
		score    float64
	}

	query := strings.TrimSpace(f.Query)
	candidates := make([]candidate, 0, len(bookmarks))
	for i := range bookmarks {
		b := &bookmarks[i]
		if !f.Matches(b) {
			continue
		}
		score := 0.0
		if query != "" {
			if score = ScoreBookmark(query, b); score == 0.0 {
				continue
			}
		}
		candidates = append(candidates, candidate{bookmark: *b, score: score})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	out := make([]Bookmark, len(candidates))
	for i, c := range candidates {
		out[i] = c.bookmark
	}
	return out
}
