package ingest

import (
	"time"

	"github.com/larchwood/logsift/internal/model"
)

// AllData disables time-range filtering.
const AllData = "all-data"

const day = 24 * time.Hour

var rangeDeltas = map[string]time.Duration{
	"1-day":   1 * day,
	"2-day":   2 * day,
	"3-day":   3 * day,
	"4-day":   4 * day,
	"5-day":   5 * day,
	"6-day":   6 * day,
	"1-week":  7 * day,
	"2-week":  14 * day,
	"3-week":  21 * day,
	"1-month": 30 * day,
}

// RangeDelta maps a time-range token to a trailing duration. Unrecognized
// tokens fall back to one week rather than failing the run. The second
// return is false for AllData.
func RangeDelta(token string) (time.Duration, bool) {
	if token == AllData || token == "" {
		return 0, false
	}
	if d, ok := rangeDeltas[token]; ok {
		return d, true
	}
	return 7 * day, true
}

// FilterRange retains records within [max - delta, max], where max is the
// maximum timestamp observed across all records rather than wall-clock
// time, so historical data reproduces the same reports. Both boundaries
// are inclusive. Record order is preserved.
func FilterRange(records []model.LogRecord, token string) []model.LogRecord {
	delta, bounded := RangeDelta(token)
	if !bounded || len(records) == 0 {
		return records
	}

	var max time.Time
	for _, r := range records {
		if r.Timestamp.After(max) {
			max = r.Timestamp
		}
	}
	cutoff := max.Add(-delta)

	kept := make([]model.LogRecord, 0, len(records))
	for _, r := range records {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
