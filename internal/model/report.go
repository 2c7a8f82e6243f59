package model

import "time"

// SummaryRow is one line of the Summary Report: a representative log line
// standing in for every record that matched its template.
type SummaryRow struct {
	TemplateID     int     `json:"template_id"`
	GoldenSignal   string  `json:"golden_signal"`
	FaultCategory  string  `json:"fault_category"`
	Confidence     float64 `json:"confidence"`
	Frequency      int     `json:"frequency"`
	Coverage       float64 `json:"coverage"` // percent of all retained lines
	Representative string  `json:"representative_text"`
}

// WindowEntry is one classified record inside a diagnosis window.
type WindowEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	TemplateID    int       `json:"template_id"`
	GoldenSignal  string    `json:"golden_signal"`
	FaultCategory string    `json:"fault_category"`
	Raw           string    `json:"raw_text"`
}

// Window is a fixed-duration bucket of classified records. Windows are
// contiguous in time, non-overlapping, and ordered by StartTime.
type Window struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Entries   []WindowEntry `json:"entries"`
}

// SummaryReport is the deduplicated, frequency-ranked report payload.
type SummaryReport struct {
	TotalRecords int          `json:"total_records"`
	Rows         []SummaryRow `json:"rows"`
}

// DiagnosisReport re-assembles classified records into chronological windows.
// NonInfoWindows holds the same records with information-signal lines
// removed, rebuilt as its own window sequence.
type DiagnosisReport struct {
	Granularity    time.Duration `json:"granularity_ns"`
	Windows        []Window      `json:"windows"`
	NonInfoWindows []Window      `json:"non_info_windows"`
}
