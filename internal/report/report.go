// Package report serializes Summary and Diagnosis reports, plus optional
// debug artifacts, as JSON files on disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/larchwood/logsift/internal/model"
)

const (
	SummaryFile   = "summary.json"
	DiagnosisFile = "diagnosis.json"
	debugDir      = "debug"
)

// StageStat records the outcome of one pipeline stage for the debug run log.
type StageStat struct {
	Name     string        `json:"name"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration_ns"`
}

// Debug bundles the intermediate state a run produced. It is written only
// when debug mode is on.
type Debug struct {
	Templates []model.ClassifiedTemplate `json:"templates"`
	Discards  []model.DiscardEntry       `json:"discards"`
	Stages    []StageStat                `json:"stages"`
}

// Writer writes reports into a single output directory, creating it on
// first use.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteSummary writes the Summary Report to summary.json.
func (w *Writer) WriteSummary(r *model.SummaryReport) error {
	return w.writeJSON(SummaryFile, r)
}

// WriteDiagnosis writes the Diagnosis Report to diagnosis.json.
func (w *Writer) WriteDiagnosis(r *model.DiagnosisReport) error {
	return w.writeJSON(DiagnosisFile, r)
}

// WriteEmpty writes structurally valid reports with no rows or windows.
// Fatal pipeline failures still leave parseable output behind so downstream
// consumers never choke on a missing or truncated file.
func (w *Writer) WriteEmpty(granularity time.Duration) error {
	if err := w.WriteSummary(&model.SummaryReport{Rows: []model.SummaryRow{}}); err != nil {
		return err
	}
	return w.WriteDiagnosis(&model.DiagnosisReport{
		Granularity:    granularity,
		Windows:        []model.Window{},
		NonInfoWindows: []model.Window{},
	})
}

// WriteDebug writes the intermediate artifacts under <dir>/debug/: the full
// template table with classifications, a flat template-to-signal map, the
// discarded-line log, and per-stage record counts and durations.
func (w *Writer) WriteDebug(d *Debug) error {
	if err := os.MkdirAll(filepath.Join(w.dir, debugDir), 0755); err != nil {
		return fmt.Errorf("report: create debug dir: %w", err)
	}
	if err := w.writeJSON(filepath.Join(debugDir, "templates.json"), d.Templates); err != nil {
		return err
	}
	signalMap := make(map[int]string, len(d.Templates))
	for _, t := range d.Templates {
		signalMap[t.ID] = t.GoldenSignal
	}
	if err := w.writeJSON(filepath.Join(debugDir, "signal_map.json"), signalMap); err != nil {
		return err
	}
	if err := w.writeJSON(filepath.Join(debugDir, "discards.json"), d.Discards); err != nil {
		return err
	}
	return w.writeJSON(filepath.Join(debugDir, "stages.json"), d.Stages)
}

// writeJSON marshals v and writes it to name under the output directory.
// The write goes through a temp file in the same directory followed by a
// rename, so readers never observe a partially written report.
func (w *Writer) writeJSON(name string, v any) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("report: create output dir %s: %w", w.dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	path := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(name)+".tmp*")
	if err != nil {
		return fmt.Errorf("report: create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("report: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: rename %s: %w", name, err)
	}
	return nil
}
