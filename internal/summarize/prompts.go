package summarize

import (
	"fmt"
	"strings"
)

// TextSystemPrompt is installed on the shared text session.
const TextSystemPrompt = `You are a content summarization expert. Create concise, informative summaries of web pages.

Your summaries should be exactly 6-7 lines long, capturing the most important information from the content.

Rules:
- Keep it to 6-7 lines maximum
- Focus on key points and main ideas
- Be clear and concise
- No fluff or filler content
- Make it readable and engaging`

// ContentTypes are the labels the model may assign to a page.
var ContentTypes = []string{
	"Article", "Video", "Tweet", "LinkedIn Post", "LinkedIn Job", "Facebook",
	"Instagram", "Reddit", "GitHub", "StackOverflow", "Blog", "News",
	"Documentation", "Tutorial", "Product", "Other",
}

const textPrompt = `Analyze this webpage and provide:
1. A 6-7 line summary of the main content
2. The content type
3. 2-3 relevant topic tags

Title: %s
URL: %s

Content:
%s

Respond in this exact format:
TYPE: [choose one: %s]
TAGS: [2-3 relevant topic tags that describe the main themes/subjects, comma-separated, e.g., Machine Learning, Healthcare, Python]
SUMMARY: [6-7 line summary of the main content]`

const imagePrompt = `Analyze this screenshot image carefully and provide:
1. A 6-7 line summary describing what you see in the image
2. 2-3 relevant topic tags

Focus on:
- Any text visible in the image
- Visual elements (charts, diagrams, UI components, etc.)
- The overall context and purpose of the screenshot

Respond in this exact format:
TAGS: [2-3 relevant topic tags, comma-separated]
SUMMARY: [6-7 line summary of the screenshot content]`

const ocrPrompt = `Analyze this screenshot text and provide:
1. A 6-7 line summary
2. 2-3 relevant topic tags

Screenshot Text:
%s

Respond in this exact format:
TAGS: [2-3 relevant topic tags, comma-separated]
SUMMARY: [6-7 line summary]`

func buildTextPrompt(title, url, content string) string {
	last := len(ContentTypes) - 1
	choices := strings.Join(ContentTypes[:last], ", ") + ", or " + ContentTypes[last]
	return fmt.Sprintf(textPrompt, title, url, content, choices)
}

func buildOCRPrompt(text string) string {
	return fmt.Sprintf(ocrPrompt, text)
}
