package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// user generated HTML bodies keep safe formatting
	ugcPolicy = bluemonday.UGCPolicy()
	// titles, excerpts and comments are plain text
	textPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeText strips all markup and surrounding whitespace. The result is
// plain text: entities produced by the policy are decoded again so that
// `&`, quotes and `<` survive as typed.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(input)))
}
