package ingest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/larchwood/logsift/internal/config"
)

// Layout keywords for prefixes that are not parsed with time.Parse.
const (
	layoutEpoch = "epoch" // seconds or milliseconds since the Unix epoch
	layoutHex   = "hex"   // 8 hex digits of epoch seconds
)

// pattern is a compiled timestamp matcher. The regex is applied to the line
// prefix; the layouts are tried in order on the matched text.
type pattern struct {
	re      *regexp.Regexp
	layouts []string
}

// defaultPatterns returns the built-in timestamp pattern table.
func defaultPatterns() []config.TimestampPattern {
	return []config.TimestampPattern{
		{Pattern: `\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`, Layout: "2006-01-02T15:04:05Z07:00|2006-01-02T15:04:05|2006-01-02 15:04:05Z07:00|2006-01-02 15:04:05"},
		{Pattern: `\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}`, Layout: "2006/01/02 15:04:05"},
		{Pattern: `\d{2}/[A-Z][a-z]{2}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4}`, Layout: "02/Jan/2006:15:04:05 -0700"},
		{Pattern: `[A-Z][a-z]{2} [A-Z][a-z]{2} [ \d]\d \d{2}:\d{2}:\d{2} \d{4}`, Layout: "Mon Jan _2 15:04:05 2006"},
		{Pattern: `[A-Z][a-z]{2} [ \d]\d \d{2}:\d{2}:\d{2}`, Layout: "Jan _2 15:04:05"},
		{Pattern: `\d{13}\b`, Layout: layoutEpoch},
		{Pattern: `\d{10}(?:\.\d+)?\b`, Layout: layoutEpoch},
		{Pattern: `[0-9A-Fa-f]{8}(?:\.[0-9A-Fa-f]{4})?\b`, Layout: layoutHex},
	}
}

// extractor pulls timestamps off line prefixes using an ordered pattern list.
type extractor struct {
	patterns []pattern
	// Year substituted into formats that carry none (syslog). Fixed at
	// construction so one run parses consistently across midnight.
	defaultYear int
}

// newExtractor compiles the given pattern table, or the built-in one when
// cfgs is empty. Patterns are tried longest-regex first so more specific
// formats win.
func newExtractor(cfgs []config.TimestampPattern, defaultYear int) (*extractor, error) {
	if len(cfgs) == 0 {
		cfgs = defaultPatterns()
	}
	sorted := make([]config.TimestampPattern, len(cfgs))
	copy(sorted, cfgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Pattern) > len(sorted[j].Pattern)
	})

	pats := make([]pattern, 0, len(sorted))
	for _, c := range sorted {
		re, err := regexp.Compile(`^[\[\(]?(` + c.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("ingest: timestamp pattern %q: %w", c.Pattern, err)
		}
		pats = append(pats, pattern{re: re, layouts: strings.Split(c.Layout, "|")})
	}
	return &extractor{patterns: pats, defaultYear: defaultYear}, nil
}

// extract returns the parsed timestamp and the message body with the
// timestamp prefix stripped. ok is false when no pattern parses.
func (e *extractor) extract(line string) (ts time.Time, body string, ok bool) {
	for _, p := range e.patterns {
		loc := p.re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		matched := line[loc[2]:loc[3]]
		parsed, err := e.parse(matched, p.layouts)
		if err != nil {
			continue
		}
		rest := strings.TrimLeft(line[loc[3]:], "]) \t:-")
		return parsed, rest, true
	}
	return time.Time{}, "", false
}

func (e *extractor) parse(text string, layouts []string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		switch layout {
		case layoutEpoch:
			return e.parseEpoch(text)
		case layoutHex:
			return e.parseHex(text)
		}
		t, err := time.Parse(layout, text)
		if err != nil {
			lastErr = err
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(e.defaultYear, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, lastErr
}

func (e *extractor) parseEpoch(text string) (time.Time, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return time.Time{}, err
	}
	// 13-digit values are milliseconds.
	if f >= 1e12 {
		f /= 1000
	}
	t := time.Unix(int64(f), int64((f-float64(int64(f)))*1e9)).UTC()
	return checkPlausible(t)
}

func (e *extractor) parseHex(text string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.SplitN(text, ".", 2)[0], 16, 64)
	if err != nil {
		return time.Time{}, err
	}
	return checkPlausible(time.Unix(secs, 0).UTC())
}

// checkPlausible rejects decoded epochs far outside the era log files can
// realistically come from, which keeps bare numbers from masquerading as
// timestamps.
func checkPlausible(t time.Time) (time.Time, error) {
	if t.Year() < 2000 || t.Year() > 2100 {
		return time.Time{}, fmt.Errorf("ingest: implausible epoch %s", t)
	}
	return t, nil
}
