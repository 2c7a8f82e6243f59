package model

import "time"

// LogRecord is a single normalized log line produced by ingestion.
// Records are immutable once ingestion has emitted them.
type LogRecord struct {
	Source     string    // path of the file the line came from
	LineNumber int       // 1-based line number within the source
	Seq        int       // global discovery order across all sources
	Timestamp  time.Time
	Raw        string // original line text
	Body       string // message body with the timestamp prefix removed
}

// DiscardEntry records a line that could not be normalized.
type DiscardEntry struct {
	Source     string `json:"source"`
	LineNumber int    `json:"line_number"`
	Raw        string `json:"raw"`
	Reason     string `json:"reason"`
}
