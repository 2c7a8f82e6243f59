// Package window re-assembles classified records into fixed-width,
// chronologically ordered buckets for the Diagnosis Report.
package window

import (
	"sort"
	"time"

	"github.com/larchwood/logsift/internal/classify"
	"github.com/larchwood/logsift/internal/model"
)

// Build partitions records into contiguous windows of width g, anchored at
// the timestamp of the earliest record rather than a calendar boundary.
// Records are stably sorted by timestamp, ties broken by discovery order,
// and keep that order within each window. Only windows holding at least
// one record are emitted, in ascending start-time order.
func Build(records []model.LogRecord, assign []int, classes map[int]model.Classification, g time.Duration) []model.Window {
	if len(records) == 0 || g <= 0 {
		return nil
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := records[idx[a]].Timestamp, records[idx[b]].Timestamp
		if ta.Equal(tb) {
			return records[idx[a]].Seq < records[idx[b]].Seq
		}
		return ta.Before(tb)
	})

	anchor := records[idx[0]].Timestamp
	var windows []model.Window
	cur := -1
	for _, i := range idx {
		r := records[i]
		bucket := int(r.Timestamp.Sub(anchor) / g)
		if cur < 0 || bucket != cur {
			start := anchor.Add(time.Duration(bucket) * g)
			windows = append(windows, model.Window{
				StartTime: start,
				EndTime:   start.Add(g),
			})
			cur = bucket
		}

		id := assign[i]
		cls, ok := classes[id]
		if !ok {
			cls = model.Classification{
				GoldenSignal:  classify.SignalUnknown,
				FaultCategory: classify.FaultUnknown,
			}
		}
		w := &windows[len(windows)-1]
		w.Entries = append(w.Entries, model.WindowEntry{
			Timestamp:     r.Timestamp,
			TemplateID:    id,
			GoldenSignal:  cls.GoldenSignal,
			FaultCategory: cls.FaultCategory,
			Raw:           r.Raw,
		})
	}
	return windows
}

// FilterNonInfo drops records whose template carries the informational
// signal, keeping the record/assignment slices aligned. The result feeds a
// second Build pass for the non-informational diagnosis view.
func FilterNonInfo(records []model.LogRecord, assign []int, classes map[int]model.Classification) ([]model.LogRecord, []int) {
	var recs []model.LogRecord
	var ids []int
	for i, r := range records {
		if classes[assign[i]].GoldenSignal == classify.SignalInfo {
			continue
		}
		recs = append(recs, r)
		ids = append(ids, assign[i])
	}
	return recs, ids
}
