package miner

import (
	"testing"

	"github.com/larchwood/logsift/internal/model"
)

func TestMergeIdenticalPatterns(t *testing.T) {
	a := New(DefaultConfig())
	a.Add("job done ok")
	a.Add("job done ok")
	b := New(DefaultConfig())
	localB := b.Add("job done ok")

	res := Merge([]*Miner{a, b})
	if len(res.Templates) != 1 {
		t.Fatalf("expected 1 merged template, got %d", len(res.Templates))
	}
	if res.Templates[0].ExampleCount != 3 {
		t.Fatalf("expected summed count 3, got %d", res.Templates[0].ExampleCount)
	}
	if res.Remap[1][localB] != res.Templates[0].ID {
		t.Fatalf("remap mismatch: %v", res.Remap)
	}
}

func TestMergeDistinctPatterns(t *testing.T) {
	a := New(DefaultConfig())
	a.Add("alpha beta")
	b := New(DefaultConfig())
	b.Add("gamma delta")

	res := Merge([]*Miner{a, b})
	if len(res.Templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(res.Templates))
	}
	// First-encounter order: shard a's template gets ID 1.
	if res.Templates[0].Tokens[0] != "alpha" || res.Templates[0].ID != 1 {
		t.Fatalf("unexpected first template: %+v", res.Templates[0])
	}
	if res.Templates[1].Tokens[0] != "gamma" || res.Templates[1].ID != 2 {
		t.Fatalf("unexpected second template: %+v", res.Templates[1])
	}
}

func TestMergeGeneralizedPatternsEqual(t *testing.T) {
	a := New(DefaultConfig())
	a.Add("get item4 ok")
	a.Add("get item7 ok") // generalizes to get <*> ok
	b := New(DefaultConfig())
	b.Add("get item9 ok")
	b.Add("get item2 ok")

	res := Merge([]*Miner{a, b})
	if len(res.Templates) != 1 {
		t.Fatalf("expected identical generalized patterns to merge, got %d", len(res.Templates))
	}
	if res.Templates[0].ExampleCount != 4 {
		t.Fatalf("expected count 4, got %d", res.Templates[0].ExampleCount)
	}
}

func TestMergeSentinel(t *testing.T) {
	a := New(DefaultConfig())
	a.Add("")
	a.Add("real message here")
	b := New(DefaultConfig())
	b.Add("")

	res := Merge([]*Miner{a, b})
	if res.Templates[0].ID != model.SentinelTemplateID {
		t.Fatalf("expected sentinel first, got ID %d", res.Templates[0].ID)
	}
	if res.Templates[0].ExampleCount != 2 {
		t.Fatalf("expected sentinel count 2, got %d", res.Templates[0].ExampleCount)
	}
	if res.Remap[1][model.SentinelTemplateID] != model.SentinelTemplateID {
		t.Fatalf("sentinel must keep its reserved ID")
	}
}
