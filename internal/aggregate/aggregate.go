// Package aggregate counts template occurrences and selects representative
// lines for the Summary Report.
package aggregate

import (
	"sort"

	"github.com/larchwood/logsift/internal/classify"
	"github.com/larchwood/logsift/internal/model"
)

// Representatives picks the texts classified on behalf of each template:
// the first line observed per (template, source file), in discovery order.
// Classifying a handful of lines per template instead of every line is
// what bounds classification cost by the template count.
func Representatives(records []model.LogRecord, assign []int) []classify.Representative {
	type key struct {
		template int
		source   string
	}
	seen := make(map[key]bool)
	texts := make(map[int][]string)
	var order []int

	for i, r := range records {
		id := assign[i]
		k := key{template: id, source: r.Source}
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := texts[id]; !ok {
			order = append(order, id)
		}
		texts[id] = append(texts[id], r.Body)
	}

	sort.Ints(order)
	reps := make([]classify.Representative, 0, len(order))
	for _, id := range order {
		reps = append(reps, classify.Representative{TemplateID: id, Texts: texts[id]})
	}
	return reps
}

// Build produces the ranked Summary Report rows. Frequency is the count of
// retained records per template; the representative text is the raw text
// of the first record observed for the template, which keeps reruns over
// the same input byte-identical. Rows sort by frequency descending, ties
// by template ID ascending. Templates with no retained records simply do
// not appear.
func Build(records []model.LogRecord, assign []int, classes map[int]model.Classification) []model.SummaryRow {
	counts := make(map[int]int)
	first := make(map[int]string)
	for i, r := range records {
		id := assign[i]
		if _, ok := counts[id]; !ok {
			first[id] = r.Raw
		}
		counts[id]++
	}

	total := len(records)
	rows := make([]model.SummaryRow, 0, len(counts))
	for id, n := range counts {
		cls, ok := classes[id]
		if !ok {
			cls = model.Classification{
				GoldenSignal:  classify.SignalUnknown,
				FaultCategory: classify.FaultUnknown,
			}
		}
		row := model.SummaryRow{
			TemplateID:     id,
			GoldenSignal:   cls.GoldenSignal,
			FaultCategory:  cls.FaultCategory,
			Confidence:     cls.Confidence,
			Frequency:      n,
			Representative: first[id],
		}
		if total > 0 {
			row.Coverage = float64(n) / float64(total) * 100
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Frequency != rows[j].Frequency {
			return rows[i].Frequency > rows[j].Frequency
		}
		return rows[i].TemplateID < rows[j].TemplateID
	})
	return rows
}
