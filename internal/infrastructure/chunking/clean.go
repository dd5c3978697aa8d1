package chunking

import (
	"regexp"
	"strings"
)

var (
	pageNumberLine = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	pageMarker     = regexp.MustCompile(`(?:Page|পৃষ্ঠা)\s*\d+`)
)

// Clean strips page markers and bare page-number lines left by PDF
// extraction and collapses whitespace.
func Clean(text string) string {
	text = pageNumberLine.ReplaceAllString(text, " ")
	text = pageMarker.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
