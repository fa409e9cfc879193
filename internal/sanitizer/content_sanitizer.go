// Package sanitizer strips markup from user-submitted chat content before it
// is stored or echoed back.
package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer reduces chat message content to plain text. Stored
// messages may be rendered by arbitrary clients, so script tags, event
// handlers, and other markup never survive storage.
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer creates a sanitizer with a strict no-markup policy
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize strips all HTML from the content and restores escaped entities so
// plain-text punctuation ("a < b") round-trips unchanged.
func (s *ContentSanitizer) Sanitize(content string) string {
	stripped := s.policy.Sanitize(content)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
