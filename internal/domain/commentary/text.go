package commentary

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textSanitizer = bluemonday.StrictPolicy()

// CleanText strips markup and entities from provider commentary.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(textSanitizer.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}

// outcomeSegment extracts "FOUR" from "Starc to Kohli, FOUR, driven through covers".
func outcomeSegment(text string) string {
	_, rest, found := strings.Cut(text, ",")
	if !found {
		return strings.TrimSpace(text)
	}
	segment, _, _ := strings.Cut(rest, ",")
	return strings.TrimSpace(segment)
}
