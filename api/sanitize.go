package api

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// chat text is stored as plain text
	strictPolicy = bluemonday.StrictPolicy()
	// document content keeps formatting markup
	contentPolicy = newContentPolicy()
)

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	return p
}

// SanitizeMessage strips every tag from a chat message
func SanitizeMessage(text string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(text)))
}

// SanitizeContent removes scripts and unsafe attributes from document HTML
func SanitizeContent(content string) string {
	return contentPolicy.Sanitize(content)
}
