package ingest

import (
	"testing"
	"time"

	"github.com/larchwood/logsift/internal/config"
)

func newTestExtractor(t *testing.T) *extractor {
	t.Helper()
	ext, err := newExtractor(nil, 2026)
	if err != nil {
		t.Fatalf("newExtractor: %v", err)
	}
	return ext
}

func TestExtractISO8601(t *testing.T) {
	ext := newTestExtractor(t)
	ts, body, ok := ext.extract("2026-01-02T03:04:05Z error disk full")
	if !ok {
		t.Fatalf("expected match")
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("expected %v, got %v", want, ts)
	}
	if body != "error disk full" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestExtractBracketedTimestamp(t *testing.T) {
	ext := newTestExtractor(t)
	ts, body, ok := ext.extract("[2026-01-02 03:04:05] worker started")
	if !ok {
		t.Fatalf("expected match")
	}
	if ts.Hour() != 3 || ts.Year() != 2026 {
		t.Fatalf("unexpected timestamp %v", ts)
	}
	if body != "worker started" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestExtractSyslogUsesDefaultYear(t *testing.T) {
	ext := newTestExtractor(t)
	ts, body, ok := ext.extract("Jan  2 15:04:05 myhost cron started")
	if !ok {
		t.Fatalf("expected match")
	}
	if ts.Year() != 2026 {
		t.Fatalf("expected default year 2026, got %d", ts.Year())
	}
	if body != "myhost cron started" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestExtractEpochMilliseconds(t *testing.T) {
	ext := newTestExtractor(t)
	ts, body, ok := ext.extract("1767327845000 boom")
	if !ok {
		t.Fatalf("expected match")
	}
	if !ts.Equal(time.Unix(1767327845, 0).UTC()) {
		t.Fatalf("unexpected timestamp %v", ts)
	}
	if body != "boom" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestExtractEpochSeconds(t *testing.T) {
	ext := newTestExtractor(t)
	ts, _, ok := ext.extract("1767327845 boom")
	if !ok {
		t.Fatalf("expected match")
	}
	if !ts.Equal(time.Unix(1767327845, 0).UTC()) {
		t.Fatalf("unexpected timestamp %v", ts)
	}
}

func TestExtractHexTimestamp(t *testing.T) {
	ext := newTestExtractor(t)
	ts, body, ok := ext.extract("5f7c3a2b session opened")
	if !ok {
		t.Fatalf("expected match")
	}
	if !ts.Equal(time.Unix(0x5f7c3a2b, 0).UTC()) {
		t.Fatalf("unexpected timestamp %v", ts)
	}
	if body != "session opened" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestExtractRejectsImplausibleEpoch(t *testing.T) {
	ext := newTestExtractor(t)
	// Decodes to year 2286; bare numbers must not masquerade as timestamps.
	if _, _, ok := ext.extract("9999999999 not a time"); ok {
		t.Fatalf("expected implausible epoch to be rejected")
	}
}

func TestExtractNoTimestamp(t *testing.T) {
	ext := newTestExtractor(t)
	if _, _, ok := ext.extract("plain text without any timestamp"); ok {
		t.Fatalf("expected no match")
	}
}

func TestExtractCustomPattern(t *testing.T) {
	ext, err := newExtractor([]config.TimestampPattern{
		{Pattern: `\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}`, Layout: "02.01.2006 15:04"},
	}, 2026)
	if err != nil {
		t.Fatalf("newExtractor: %v", err)
	}
	ts, body, ok := ext.extract("31.12.2025 23:59 year end job")
	if !ok {
		t.Fatalf("expected match")
	}
	if ts.Month() != time.December || ts.Year() != 2025 {
		t.Fatalf("unexpected timestamp %v", ts)
	}
	if body != "year end job" {
		t.Fatalf("unexpected body %q", body)
	}
}
