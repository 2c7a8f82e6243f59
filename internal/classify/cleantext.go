package classify

import (
	"regexp"
	"strings"
)

var (
	ipPattern       = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	urlPattern      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	nonAlnumPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
	digitPattern    = regexp.MustCompile(`\d+`)
	camelPattern    = regexp.MustCompile(`([a-z])([A-Z])`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// CleanText normalizes a log line for scoring: addresses and URLs are
// replaced with placeholder words, digits dropped, camelCase identifiers
// split, everything lowercased. Scorers see prose-like text instead of
// machine noise.
func CleanText(s string) string {
	s = ipPattern.ReplaceAllString(s, "IPADDRESS")
	s = urlPattern.ReplaceAllString(s, "URL")
	s = camelPattern.ReplaceAllString(s, "$1 $2")
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = digitPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}
