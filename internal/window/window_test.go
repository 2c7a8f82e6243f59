package window

import (
	"testing"
	"time"

	"github.com/larchwood/logsift/internal/model"
)

var base = time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC)

func record(seq int, offset time.Duration, raw string) model.LogRecord {
	return model.LogRecord{Seq: seq, Timestamp: base.Add(offset), Raw: raw, Body: raw}
}

func TestBuildAnchorsAtFirstRecord(t *testing.T) {
	records := []model.LogRecord{
		record(0, 0, "a"),
		record(1, 10*time.Second, "b"),
		record(2, 70*time.Second, "c"),
	}
	assign := []int{1, 1, 1}

	windows := Build(records, assign, nil, 30*time.Second)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows (empty middle window dropped), got %d", len(windows))
	}
	if !windows[0].StartTime.Equal(base) {
		t.Fatalf("expected first window anchored at %v, got %v", base, windows[0].StartTime)
	}
	if !windows[1].StartTime.Equal(base.Add(60 * time.Second)) {
		t.Fatalf("unexpected second window start %v", windows[1].StartTime)
	}
	if len(windows[0].Entries) != 2 || len(windows[1].Entries) != 1 {
		t.Fatalf("unexpected entry counts: %d, %d", len(windows[0].Entries), len(windows[1].Entries))
	}
	if windows[0].EndTime.Sub(windows[0].StartTime) != 30*time.Second {
		t.Fatalf("unexpected window width")
	}
}

func TestBuildSortsWithStableTies(t *testing.T) {
	// Same timestamp: discovery order (Seq) decides.
	records := []model.LogRecord{
		record(1, time.Second, "second"),
		record(2, time.Second, "third"),
		record(0, 0, "first"),
	}
	assign := []int{1, 1, 1}

	windows := Build(records, assign, nil, time.Minute)
	got := windows[0].Entries
	if got[0].Raw != "first" || got[1].Raw != "second" || got[2].Raw != "third" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestBuildCarriesClassification(t *testing.T) {
	records := []model.LogRecord{record(0, 0, "disk full")}
	classes := map[int]model.Classification{
		7: {GoldenSignal: "error", FaultCategory: "io", Confidence: 0.8},
	}
	windows := Build(records, []int{7}, classes, time.Minute)
	e := windows[0].Entries[0]
	if e.TemplateID != 7 || e.GoldenSignal != "error" || e.FaultCategory != "io" {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	if windows := Build(nil, nil, nil, time.Minute); windows != nil {
		t.Fatalf("expected nil, got %v", windows)
	}
	if windows := Build([]model.LogRecord{record(0, 0, "x")}, []int{1}, nil, 0); windows != nil {
		t.Fatalf("expected nil for zero granularity, got %v", windows)
	}
}

func TestFilterNonInfo(t *testing.T) {
	records := []model.LogRecord{
		record(0, 0, "heartbeat ok"),
		record(1, time.Second, "disk full"),
		record(2, 2*time.Second, "mystery"),
	}
	assign := []int{1, 2, 3}
	classes := map[int]model.Classification{
		1: {GoldenSignal: "information", FaultCategory: "other"},
		2: {GoldenSignal: "error", FaultCategory: "io"},
		// template 3 unclassified: kept, it is not known to be informational
	}

	recs, ids := FilterNonInfo(records, assign, classes)
	if len(recs) != 2 || len(ids) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Raw != "disk full" || ids[0] != 2 {
		t.Fatalf("unexpected first record %v (template %d)", recs[0].Raw, ids[0])
	}
	if recs[1].Raw != "mystery" || ids[1] != 3 {
		t.Fatalf("unexpected second record %v (template %d)", recs[1].Raw, ids[1])
	}
}
