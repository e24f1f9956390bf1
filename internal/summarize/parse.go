package summarize

import (
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
)

var (
	typeRe    = regexp.MustCompile(`(?i)TYPE:[ \t]*([^\n]*)`)
	tagsRe    = regexp.MustCompile(`(?i)TAGS:[ \t]*([^\n]*)`)
	summaryRe = regexp.MustCompile(`(?is)SUMMARY:\s*(.+)`)

	markerRe = regexp.MustCompile(`(?i)^(TYPE|TAGS|SUMMARY):`)
)

// Parsed holds the fields extracted from a model response.
type Parsed struct {
	Type    string
	Tags    []string
	Summary string
}

// ParseResponse extracts TYPE, TAGS and SUMMARY from a free-form response.
// Each field is matched on its own; a missing field keeps its default
// (Article, no tags, the whole trimmed response). When withType is false
// the TYPE line is ignored and Type is left empty.
func ParseResponse(response string, withType bool) Parsed {
	response = strings.TrimSpace(response)
	p := Parsed{
		Tags:    []string{},
		Summary: response,
	}

	if withType {
		p.Type = domain.TypeArticle
		if t, ok := field(typeRe, response); ok {
			p.Type = t
		}
	}

	if t, ok := field(tagsRe, response); ok {
		p.Tags = splitTags(t)
	}

	if m := summaryRe.FindStringSubmatch(response); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			p.Summary = s
		}
	}
	return p
}

// field returns the trimmed single-line value of a marker. A blank value
// or one that is itself a marker counts as absent.
func field(re *regexp.Regexp, response string) (string, bool) {
	m := re.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	if v == "" || markerRe.MatchString(v) {
		return "", false
	}
	return v, true
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		tags = append(tags, t)
		if len(tags) == domain.MaxTags {
			break
		}
	}
	return tags
}
