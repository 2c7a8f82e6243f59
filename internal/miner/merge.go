package miner

import (
	"sort"
	"strings"

	"github.com/larchwood/logsift/internal/model"
)

// MergeResult holds the combined template set from several shard miners and
// the per-shard ID remapping needed to rewrite shard-local assignments.
type MergeResult struct {
	Templates []model.Template
	// Remap[shard][localID] = merged ID.
	Remap []map[int]int
}

// Merge combines independently mined shard trees into one template set.
// Two shard templates are considered the same template iff their token
// patterns are exactly equal (wildcards included). Merged IDs are assigned
// in first-encounter order, walking shards in the order given and each
// shard's templates in local ID order, so the result is deterministic for
// a fixed shard order. Example counts are summed; the sentinel template
// keeps its reserved ID.
func Merge(shards []*Miner) MergeResult {
	res := MergeResult{Remap: make([]map[int]int, len(shards))}

	byPattern := make(map[string]int) // pattern key -> index into res.Templates
	sentinelIdx := -1
	nextID := 1

	for si, shard := range shards {
		remap := make(map[int]int)
		res.Remap[si] = remap

		for _, t := range shard.Templates() {
			if t.ID == model.SentinelTemplateID {
				if sentinelIdx < 0 {
					sentinelIdx = len(res.Templates)
					res.Templates = append(res.Templates, model.Template{ID: model.SentinelTemplateID})
				}
				res.Templates[sentinelIdx].ExampleCount += t.ExampleCount
				remap[t.ID] = model.SentinelTemplateID
				continue
			}

			key := patternKey(t.Tokens)
			idx, ok := byPattern[key]
			if !ok {
				idx = len(res.Templates)
				byPattern[key] = idx
				merged := t
				merged.ID = nextID
				merged.Tokens = append([]string(nil), t.Tokens...)
				merged.ExampleCount = 0
				res.Templates = append(res.Templates, merged)
				nextID++
			}
			res.Templates[idx].ExampleCount += t.ExampleCount
			remap[t.ID] = res.Templates[idx].ID
		}
	}

	sort.Slice(res.Templates, func(i, j int) bool {
		return res.Templates[i].ID < res.Templates[j].ID
	})
	return res
}

func patternKey(tokens []string) string {
	return strings.Join(tokens, "\x00")
}
